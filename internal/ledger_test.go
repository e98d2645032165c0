// v1
// ledger_test.go
package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriveLedgerDisabledWithoutBrokers(t *testing.T) {
	cfg := &AppConfig{LedgerTopic: "drive.ledger"}

	l, err := NewDriveLedger(cfg, testLogger())

	require.NoError(t, err)
	assert.Nil(t, l, "no brokers means no ledger, not an error")
}

func TestDriveLedgerWiresWriter(t *testing.T) {
	cfg := &AppConfig{KafkaBrokers: []string{"kafka-1:9092"}, LedgerTopic: "drive.ledger"}

	l, err := NewDriveLedger(cfg, testLogger())

	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, "drive.ledger", l.topic)
	l.Close()
}
