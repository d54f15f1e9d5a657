package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type GeofenceConfig struct {
	OfficeDwellTimeSeconds  int
	OfficeSpeedThresholdKmh float64
}

type LocationConfig struct {
	BatchMaxSize int
}

type WorkerPoolConfig struct {
	CoreSize  int
	MaxSize   int
	QueueSize int
}

type RedisConfig struct {
	Addr    string
	Enabled bool
}

type NotifierConfig struct {
	Driver              string // "logging" or "push"
	FirebaseCredentials string
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioFromNumber    string
	AdminPhone          string
}

type MQTTConfig struct {
	Enabled  bool
	BrokerURL string
	Topic    string
	ClientID string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Geofence    GeofenceConfig
	Location    LocationConfig
	WorkerPool  WorkerPoolConfig
	Redis       RedisConfig
	Notifier    NotifierConfig
	MQTT        MQTTConfig
}

func Load() (*Config, error) {
	// Best-effort: a missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Geofence: GeofenceConfig{
			OfficeDwellTimeSeconds:  v.GetInt("GEOFENCE_OFFICE_DWELL_TIME_SECONDS"),
			OfficeSpeedThresholdKmh: v.GetFloat64("GEOFENCE_OFFICE_SPEED_THRESHOLD_KMH"),
		},
		Location: LocationConfig{
			BatchMaxSize: v.GetInt("LOCATION_BATCH_MAX_SIZE"),
		},
		WorkerPool: WorkerPoolConfig{
			CoreSize:  v.GetInt("WORKER_POOL_CORE_SIZE"),
			MaxSize:   v.GetInt("WORKER_POOL_MAX_SIZE"),
			QueueSize: v.GetInt("WORKER_POOL_QUEUE_SIZE"),
		},
		Redis: RedisConfig{
			Addr:    v.GetString("REDIS_ADDR"),
			Enabled: v.GetBool("REDIS_ENABLED"),
		},
		Notifier: NotifierConfig{
			Driver:              v.GetString("NOTIFIER_DRIVER"),
			FirebaseCredentials: v.GetString("FIREBASE_CREDENTIALS_FILE"),
			TwilioAccountSID:    v.GetString("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:     v.GetString("TWILIO_AUTH_TOKEN"),
			TwilioFromNumber:    v.GetString("TWILIO_FROM_NUMBER"),
			AdminPhone:          v.GetString("NOTIFIER_ADMIN_PHONE"),
		},
		MQTT: MQTTConfig{
			Enabled:   v.GetBool("MQTT_ENABLED"),
			BrokerURL: v.GetString("MQTT_BROKER_URL"),
			Topic:     v.GetString("MQTT_TOPIC"),
			ClientID:  v.GetString("MQTT_CLIENT_ID"),
		},
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 25
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 5
	}
	if cfg.DB.ConnMaxLifetime == 0 {
		cfg.DB.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Geofence.OfficeDwellTimeSeconds == 0 {
		cfg.Geofence.OfficeDwellTimeSeconds = 30
	}
	if cfg.Geofence.OfficeSpeedThresholdKmh == 0 {
		cfg.Geofence.OfficeSpeedThresholdKmh = 5.0
	}
	if cfg.Location.BatchMaxSize == 0 {
		cfg.Location.BatchMaxSize = 100
	}
	if cfg.WorkerPool.CoreSize == 0 {
		cfg.WorkerPool.CoreSize = 10
	}
	if cfg.WorkerPool.MaxSize == 0 {
		cfg.WorkerPool.MaxSize = 50
	}
	if cfg.WorkerPool.QueueSize == 0 {
		cfg.WorkerPool.QueueSize = 500
	}
	if cfg.Notifier.Driver == "" {
		cfg.Notifier.Driver = "logging"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "fleet/+/location"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "geofence-service"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	return nil
}
