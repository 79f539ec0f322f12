package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/database"
)

// HealthService probes the dependencies behind the API. PostgreSQL is the
// only critical one; the service keeps answering, degraded, when Redis,
// Kafka, or the content platform is down.
type HealthService struct {
	cfg      *config.Config
	logger   *logrus.Logger
	db       *database.Database
	upstream ArticleProvider

	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
	poolMetrics       *prometheus.GaugeVec
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Services    map[string]string `json:"services"`
	Critical    []string          `json:"critical_failures,omitempty"`
	NonCritical []string          `json:"non_critical_failures,omitempty"`
}

func NewHealthService(cfg *config.Config, logger *logrus.Logger, db *database.Database, upstream ArticleProvider, reg prometheus.Registerer) *HealthService {
	hs := &HealthService{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		upstream: upstream,
	}

	hs.healthCheckStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mbtirec_health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"})

	hs.lastHealthCheck = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mbtirec_health_check_timestamp",
		Help: "Timestamp of last health check",
	}, []string{"service"})

	hs.poolMetrics = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mbtirec_database_connection_pool",
		Help: "Database connection pool state",
	}, []string{"state"})

	for _, c := range []prometheus.Collector{hs.healthCheckStatus, hs.lastHealthCheck, hs.poolMetrics} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				logger.WithError(err).Warn("Failed to register health metric")
			}
		}
	}

	go hs.collectPoolMetrics()

	return hs
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	critical := map[string]func(context.Context) error{
		"postgresql": s.checkPostgreSQL,
	}

	nonCritical := map[string]func(context.Context) error{
		"upstream": s.checkUpstream,
	}
	if s.db != nil && s.db.Redis != nil {
		nonCritical["redis"] = s.checkRedis
	}
	if s.cfg.Kafka.Enabled() {
		nonCritical["kafka"] = s.checkKafka
	}

	allCriticalHealthy := true
	for name, check := range critical {
		if err := check(ctx); err != nil {
			status.Services[name] = "unhealthy"
			status.Critical = append(status.Critical, name)
			allCriticalHealthy = false
			s.logger.WithError(err).Errorf("Critical service %s is unhealthy", name)
			s.updateHealthMetrics(name, false)
		} else {
			status.Services[name] = "healthy"
			s.updateHealthMetrics(name, true)
		}
	}

	for name, check := range nonCritical {
		if err := check(ctx); err != nil {
			status.Services[name] = "unhealthy"
			status.NonCritical = append(status.NonCritical, name)
			s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", name)
			s.updateHealthMetrics(name, false)
		} else {
			status.Services[name] = "healthy"
			s.updateHealthMetrics(name, true)
		}
	}

	if allCriticalHealthy {
		if len(status.NonCritical) == 0 {
			status.Status = "healthy"
		} else {
			status.Status = "degraded"
		}
	} else {
		status.Status = "unhealthy"
	}

	return status
}

func (s *HealthService) checkPostgreSQL(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.db.PG.Ping(ctx)
}

func (s *HealthService) checkRedis(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.db.Redis.Ping(ctx).Err()
}

// checkUpstream asks the content platform for a single article page.
func (s *HealthService) checkUpstream(ctx context.Context) error {
	if s.upstream == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, _, err := s.upstream.ListArticles(ctx, 1, 1, nil)
	return err
}

func (s *HealthService) checkKafka(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", s.cfg.Kafka.Brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}

func (s *HealthService) collectPoolMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if s.db == nil || s.db.PG == nil {
			continue
		}
		stats := s.db.PG.Stat()

		s.poolMetrics.WithLabelValues("acquired_conns").Set(float64(stats.AcquiredConns()))
		s.poolMetrics.WithLabelValues("idle_conns").Set(float64(stats.IdleConns()))
		s.poolMetrics.WithLabelValues("max_conns").Set(float64(stats.MaxConns()))
		s.poolMetrics.WithLabelValues("total_conns").Set(float64(stats.TotalConns()))
	}
}

func (s *HealthService) updateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}
