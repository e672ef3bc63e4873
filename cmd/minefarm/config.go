package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/ovoronin/minefarm/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = "production"

	defaultMinDeposit  = "0.01"
	defaultMinWithdraw = "0.05"
	defaultWithdrawFee = "0.001"

	// Midnight UTC, once per day
	defaultEarningsCron    = "0 0 * * *"
	defaultEarningsWorkers = 10
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string

	// Environment
	Environment string

	// Platform address users send deposits to
	DepositAddress string

	// Wallet limits, decimal strings
	MinDeposit  string
	MinWithdraw string
	WithdrawFee string

	// Daily earnings schedule (standard 5-field cron spec) and worker count
	EarningsCron    string
	EarningsWorkers int
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		ListenAddr:      defaultListenAddr,
		Environment:     defaultEnvironment,
		MinDeposit:      defaultMinDeposit,
		MinWithdraw:     defaultMinWithdraw,
		WithdrawFee:     defaultWithdrawFee,
		EarningsCron:    defaultEarningsCron,
		EarningsWorkers: defaultEarningsWorkers,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if v, err := strconv.Atoi(value); err == nil {
				*o = v
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":      setString(&c.ListenAddr),
		"DATABASE_URI":     setString(&c.DatabaseDSN),
		"SECRET_KEY":       setString(&c.SecretKey),
		"LOG_LEVEL":        setString(&c.LogLevel),
		"ENVIRONMENT":      setString(&c.Environment),
		"DEPOSIT_ADDRESS":  setString(&c.DepositAddress),
		"MIN_DEPOSIT":      setString(&c.MinDeposit),
		"MIN_WITHDRAW":     setString(&c.MinWithdraw),
		"WITHDRAW_FEE":     setString(&c.WithdrawFee),
		"EARNINGS_CRON":    setString(&c.EarningsCron),
		"EARNINGS_WORKERS": setInt(&c.EarningsWorkers),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("minefarm", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, production)")
	fs.StringVar(&c.DepositAddress, "deposit-address", c.DepositAddress, "Platform deposit address")
	fs.StringVar(&c.MinDeposit, "min-deposit", c.MinDeposit, "Minimum deposit amount")
	fs.StringVar(&c.MinWithdraw, "min-withdraw", c.MinWithdraw, "Minimum withdrawal amount")
	fs.StringVar(&c.WithdrawFee, "withdraw-fee", c.WithdrawFee, "Withdrawal fee")
	fs.StringVar(&c.EarningsCron, "earnings-cron", c.EarningsCron, "Daily earnings schedule")
	fs.IntVar(&c.EarningsWorkers, "earnings-workers", c.EarningsWorkers, "Daily earnings worker count")

	return fs.Parse(args)
}

// Decimal limits parsed from their string form, fails fast on malformed values
func (c *Config) ParseLimits() (minDeposit, minWithdraw, withdrawFee decimal.Decimal, err error) {
	if minDeposit, err = decimal.NewFromString(c.MinDeposit); err != nil {
		return
	}
	if minWithdraw, err = decimal.NewFromString(c.MinWithdraw); err != nil {
		return
	}
	withdrawFee, err = decimal.NewFromString(c.WithdrawFee)
	return
}
