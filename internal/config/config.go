package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SatoshiDNC/nostrmarket/internal/core/application"
	"github.com/SatoshiDNC/nostrmarket/internal/core/ports"
	"github.com/SatoshiDNC/nostrmarket/internal/infrastructure/db"
	"github.com/SatoshiDNC/nostrmarket/internal/infrastructure/invoicer/lnbits"
	nostrtransport "github.com/SatoshiDNC/nostrmarket/internal/infrastructure/nostr"
	timescheduler "github.com/SatoshiDNC/nostrmarket/internal/infrastructure/scheduler/gocron"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var supportedDbs = supportedType{
	"badger": {},
}

type Config struct {
	Datadir  string
	Port     uint32
	LogLevel int

	DbType string
	DbDir  string

	LnbitsURL    string
	LnbitsAPIKey string

	Relays []string

	AuthUser string
	AuthPass string

	PendingCheckInterval time.Duration

	repo      ports.RepoManager
	svc       application.Service
	invoicer  ports.InvoiceService
	publisher ports.Publisher
	scheduler ports.SchedulerService
}

func (c *Config) String() string {
	clone := *c
	clone.LnbitsAPIKey = "****"
	clone.AuthPass = "****"
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir              = "DATADIR"
	Port                 = "PORT"
	LogLevel             = "LOG_LEVEL"
	DbType               = "DB_TYPE"
	LnbitsURL            = "LNBITS_URL"
	LnbitsAPIKey         = "LNBITS_API_KEY"
	Relays               = "RELAYS"
	AuthUser             = "AUTH_USER"
	AuthPass             = "AUTH_PASS"
	PendingCheckInterval = "PENDING_CHECK_INTERVAL"

	defaultDatadir              = appDataDir("nostrmarket")
	defaultPort                 = 7580
	defaultLogLevel             = 4
	defaultDbType               = "badger"
	defaultPendingCheckInterval = 30 * time.Second
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("NOSTRMARKET")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Port, defaultPort)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(PendingCheckInterval, defaultPendingCheckInterval)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	return &Config{
		Datadir:              viper.GetString(Datadir),
		Port:                 viper.GetUint32(Port),
		LogLevel:             viper.GetInt(LogLevel),
		DbType:               viper.GetString(DbType),
		DbDir:                filepath.Join(viper.GetString(Datadir), "db"),
		LnbitsURL:            viper.GetString(LnbitsURL),
		LnbitsAPIKey:         viper.GetString(LnbitsAPIKey),
		Relays:               viper.GetStringSlice(Relays),
		AuthUser:             viper.GetString(AuthUser),
		AuthPass:             viper.GetString(AuthPass),
		PendingCheckInterval: viper.GetDuration(PendingCheckInterval),
	}, nil
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if len(c.LnbitsURL) <= 0 {
		return fmt.Errorf("%s not provided", LnbitsURL)
	}
	if len(c.LnbitsAPIKey) <= 0 {
		return fmt.Errorf("%s not provided", LnbitsAPIKey)
	}
	if len(c.Relays) <= 0 {
		return fmt.Errorf("missing nostr relays")
	}
	for _, relay := range c.Relays {
		if !nostr.IsValidRelayURL(relay) {
			return fmt.Errorf("invalid nostr relay url: %s", relay)
		}
	}
	if len(c.AuthUser) <= 0 || len(c.AuthPass) <= 0 {
		return fmt.Errorf("missing dashboard credentials (%s, %s)", AuthUser, AuthPass)
	}
	if c.PendingCheckInterval < time.Second {
		return fmt.Errorf("pending check interval must be at least 1 second")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.invoiceService(); err != nil {
		return err
	}
	if err := c.publisherService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) SchedulerService() ports.SchedulerService {
	return c.scheduler
}

func (c *Config) RepoManager() ports.RepoManager {
	return c.repo
}

func (c *Config) repoManager() error {
	logger := log.New()

	var dataStoreConfig []interface{}
	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) invoiceService() error {
	c.invoicer = lnbits.New(c.LnbitsURL, c.LnbitsAPIKey)
	return nil
}

func (c *Config) publisherService() error {
	c.publisher = nostrtransport.New(c.Relays)
	return nil
}

func (c *Config) schedulerService() error {
	c.scheduler = timescheduler.NewScheduler()
	return nil
}

func (c *Config) appService() error {
	c.svc = application.NewService(c.repo, c.invoicer, c.publisher)
	return nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func appDataDir(appName string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(homeDir, "."+appName)
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
