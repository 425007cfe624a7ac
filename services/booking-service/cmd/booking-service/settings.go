package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
)

type settings struct {
	Service  string
	Port     string
	GRPCPort string

	DatabaseURL  string
	KafkaBrokers string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SlotLockTTL   time.Duration

	RateLimitPerMinute int
	RateLimitFailOpen  bool
	BodyLimit          int64
	RequestTimeout     time.Duration
	CORSOrigins        []string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	OwnerName    string
	OwnerEmail   string

	NotifyTimeout       time.Duration
	NotifyOnReschedule  bool
	BlankOverridePolicy availability.BlankOverridePolicy
	DefaultTimezone     string
	ListTimezone        *time.Location
}

func loadSettings() (settings, error) {
	var (
		s    settings
		errs []error
		err  error
	)
	collect := func(e error) {
		if e != nil {
			errs = append(errs, e)
		}
	}

	s.Service = config.String("SERVICE_NAME", "booking-service")
	s.Port, err = config.Port("PORT", "8083")
	collect(err)
	s.GRPCPort, err = config.Port("GRPC_PORT", "9083")
	collect(err)

	s.DatabaseURL = config.String("DATABASE_URL", "")
	s.KafkaBrokers = config.String("KAFKA_BROKERS", "")

	s.RedisAddr = config.String("REDIS_ADDR", "")
	s.RedisPassword = config.String("REDIS_PASSWORD", "")
	s.RedisDB, err = config.Int("REDIS_DB", 0)
	collect(err)
	s.SlotLockTTL, err = config.Duration("SLOT_LOCK_TTL", 10*time.Second)
	collect(err)

	s.RateLimitPerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 120)
	collect(err)
	s.RateLimitFailOpen, err = config.Bool("RATE_LIMIT_FAIL_OPEN", true)
	collect(err)
	bodyLimit, err := config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20)
	collect(err)
	s.BodyLimit = int64(bodyLimit)
	s.RequestTimeout, err = config.Duration("REQUEST_TIMEOUT_SECONDS", 10*time.Second)
	collect(err)
	s.CORSOrigins = config.List("CORS_ALLOWED_ORIGINS")

	s.SMTPHost = config.String("SMTP_HOST", "")
	s.SMTPPort = config.String("SMTP_PORT", "1025")
	s.SMTPFrom = config.String("SMTP_FROM", "bookings@localhost")
	s.SMTPUsername = config.String("SMTP_USERNAME", "")
	s.SMTPPassword = config.String("SMTP_PASSWORD", "")
	s.OwnerName = config.String("OWNER_NAME", "")
	s.OwnerEmail = config.String("OWNER_EMAIL", "")

	s.NotifyTimeout, err = config.Duration("NOTIFY_TIMEOUT", 30*time.Second)
	collect(err)
	s.NotifyOnReschedule, err = config.Bool("NOTIFY_ON_RESCHEDULE", false)
	collect(err)
	s.BlankOverridePolicy, err = availability.ParseBlankOverridePolicy(config.String("BLANK_OVERRIDE_POLICY", ""))
	if err != nil {
		collect(fmt.Errorf("BLANK_OVERRIDE_POLICY: %w", err))
	}

	s.DefaultTimezone = config.String("DEFAULT_TIMEZONE", "UTC")
	if _, err := time.LoadLocation(s.DefaultTimezone); err != nil {
		collect(fmt.Errorf("DEFAULT_TIMEZONE: %w", err))
	}
	s.ListTimezone, err = time.LoadLocation(config.String("LIST_TIMEZONE", "UTC"))
	if err != nil {
		collect(fmt.Errorf("LIST_TIMEZONE: %w", err))
	}

	if s.RateLimitPerMinute <= 0 {
		collect(errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	return s, errors.Join(errs...)
}
