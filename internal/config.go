// v1
// config.go
package internal

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPBind          string
	MQTTBroker        string
	MQTTClientID      string
	SignalTopic       string
	CrosswalkTopic    string
	ModelCommandTopic string
	ImageTopic        string
	TwistTopic        string
	ModelName         string
	DrivingDir        string
	KafkaBrokers      []string
	LedgerTopic       string
	TickRateHz        int
	PropertiesPath    string

	// Policy tunables; CruiseVelocity is filled from the model
	// metadata record after the config is loaded.
	Policy PolicyConfig
}

// LoadEnvAndFiles reads the environment surface once at startup and
// merges the crosswalk tunables from the properties file. Missing
// required keys are fatal: the service never reaches the Active state
// on a bad configuration.
func LoadEnvAndFiles() (*AppConfig, error) {
	c := &AppConfig{
		HTTPBind:          getenv("HTTP_BIND", ":8080"),
		MQTTBroker:        getenv("MQTT_BROKER", ""),
		MQTTClientID:      getenv("MQTT_CLIENT_ID", "drivex-decision"),
		SignalTopic:       getenv("SIGNAL_TOPIC", "signal_detected"),
		CrosswalkTopic:    getenv("CROSSWALK_TOPIC", "crosswalk_sureness"),
		ModelCommandTopic: getenv("MODEL_COMMAND_TOPIC", "model_steering_velocity"),
		ImageTopic:        getenv("IMAGE_TOPIC", "bottom_front_camera/image_raw"),
		TwistTopic:        getenv("TWIST_TOPIC", "cmd_vel"),
		ModelName:         getenv("MODEL_NAME", ""),
		DrivingDir:        getenv("DRIVEX_DRIVING", ""),
		KafkaBrokers:      split(getenv("KAFKA_BROKERS", ""), ","),
		LedgerTopic:       getenv("LEDGER_TOPIC", "drive.ledger"),
		TickRateHz:        geti("TICK_RATE_HZ", 30),
		PropertiesPath:    getenv("PROPERTIES_PATH", "./configs/decision.properties"),
		Policy: PolicyConfig{
			CrosswalkThreshold: 0.85,
			CrosswalkStop:      850 * time.Millisecond,
			CrosswalkTimeout:   180 * time.Millisecond,
		},
	}
	if c.MQTTBroker == "" {
		return nil, errors.New("MQTT_BROKER required")
	}
	if c.ModelName == "" {
		return nil, errors.New("MODEL_NAME required")
	}
	if c.DrivingDir == "" {
		return nil, errors.New("DRIVEX_DRIVING required")
	}
	if c.TickRateHz <= 0 {
		return nil, fmt.Errorf("TICK_RATE_HZ must be > 0, got %d", c.TickRateHz)
	}
	if err := c.loadProperties(c.PropertiesPath); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadSimEnv reads only the transport surface, for tools that publish
// synthetic perception without driving a model.
func LoadSimEnv() (*AppConfig, error) {
	c := &AppConfig{
		MQTTBroker:        getenv("MQTT_BROKER", ""),
		MQTTClientID:      getenv("MQTT_CLIENT_ID", "drivex-decision"),
		SignalTopic:       getenv("SIGNAL_TOPIC", "signal_detected"),
		CrosswalkTopic:    getenv("CROSSWALK_TOPIC", "crosswalk_sureness"),
		ModelCommandTopic: getenv("MODEL_COMMAND_TOPIC", "model_steering_velocity"),
		ImageTopic:        getenv("IMAGE_TOPIC", "bottom_front_camera/image_raw"),
	}
	if c.MQTTBroker == "" {
		return nil, errors.New("MQTT_BROKER required")
	}
	return c, nil
}

// TickPeriod converts the configured rate to the loop's tick period.
func (c *AppConfig) TickPeriod() time.Duration {
	return time.Second / time.Duration(c.TickRateHz)
}

// loadProperties merges the crosswalk tunables from a key=value file.
// The file is optional when left at the default path; an explicitly
// configured path that cannot be opened is a startup error.
func (c *AppConfig) loadProperties(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && os.Getenv("PROPERTIES_PATH") == "" {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		switch k {
		case "crosswalk.threshold":
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.Policy.CrosswalkThreshold = f
			}
		case "crosswalk.stop.seconds":
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.Policy.CrosswalkStop = time.Duration(f * float64(time.Second))
			}
		case "crosswalk.timeout.seconds":
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.Policy.CrosswalkTimeout = time.Duration(f * float64(time.Second))
			}
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	if c.Policy.CrosswalkThreshold < 0 || c.Policy.CrosswalkThreshold > 1 {
		return fmt.Errorf("crosswalk.threshold must be in [0,1], got %g", c.Policy.CrosswalkThreshold)
	}
	if c.Policy.CrosswalkStop < 0 || c.Policy.CrosswalkTimeout < 0 {
		return errors.New("crosswalk stop/timeout durations must be >= 0")
	}
	return nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func geti(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return d
}

func split(s, sep string) []string {
	if s == "" {
		return nil
	}
	p := strings.Split(s, sep)
	out := make([]string, 0, len(p))
	for _, x := range p {
		x = strings.TrimSpace(x)
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}
