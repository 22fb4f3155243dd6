// Package config содержит логику чтения конфигурации библиотечного сервиса.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultLoanPeriod = 14 * 24 * time.Hour
	defaultLogLevel   = "info"
)

// Config содержит параметры конфигурации библиотечного сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	// CreditLimit — потолок долга читателя в минимальных единицах валюты; 0 отключает проверку.
	CreditLimit  int64         `env:"CREDIT_LIMIT"`
	LoanPeriod   time.Duration `env:"LOAN_PERIOD"`
	RateLimitRPS float64       `env:"RATE_LIMIT_RPS"`
	LogLevel     string        `env:"LOG_LEVEL"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами, а реальное окружение над .env.
func Parse() (*Config, error) {
	return ParseFile(".env")
}

// ParseFile работает как Parse, но читает переменные из указанного файла.
func ParseFile(dotenv string) (*Config, error) {
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotenv, err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.Int64Var(&cfg.CreditLimit, "c", 0, "maximum member balance, 0 disables the check")
	flag.DurationVar(&cfg.LoanPeriod, "p", defaultLoanPeriod, "loan period")
	flag.Float64Var(&cfg.RateLimitRPS, "rps", 0, "requests per second per client, 0 disables the limit")
	flag.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.LoanPeriod <= 0 {
		cfg.LoanPeriod = defaultLoanPeriod
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	return cfg, nil
}
