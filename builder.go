package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/eduadmin/authcore/csrf"
	"github.com/eduadmin/authcore/internal/rate"
	"github.com/eduadmin/authcore/password"
	"github.com/eduadmin/authcore/permission"
	"github.com/eduadmin/authcore/session"
)

// Builder defines a public type used by authcore APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	permissions []string
	roles       map[string][]string

	credentials CredentialStore
	auditSink   AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPermissions describes the withpermissions operation and its observable behavior.
//
// WithPermissions may return an error when input validation, dependency calls, or security checks fail.
// WithPermissions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithPermissions(perms []string) *Builder {
	b.permissions = perms
	return b
}

// WithRoles describes the withroles operation and its observable behavior.
//
// WithRoles may return an error when input validation, dependency calls, or security checks fail.
// WithRoles does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

// WithCredentialStore describes the withcredentialstore operation and its observable behavior.
//
// WithCredentialStore may return an error when input validation, dependency calls, or security checks fail.
// WithCredentialStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Authority, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}

	perms := b.permissions
	if len(perms) == 0 {
		perms = DefaultPermissions()
	}

	roles := b.roles
	if len(roles) == 0 {
		roles = DefaultRoles()
	}

	// -------- PERMISSION REGISTRY --------
	registry := permission.NewRegistry()

	for _, p := range perms {
		if _, err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	registry.Freeze()

	// -------- ROLE CATALOG --------
	catalog := permission.NewCatalog(registry)

	for roleName, permList := range roles {
		if _, err := ParseRole(roleName); err != nil {
			return nil, err
		}
		if err := catalog.RegisterRole(roleName, permList); err != nil {
			return nil, err
		}
	}

	catalog.Freeze()

	metrics := NewMetrics(cfg.Metrics)

	authority := &Authority{
		config:  cfg,
		catalog: catalog,
		store:   session.NewStore(b.redis, cfg.Session.RedisPrefix),
		limiter: rate.New(b.redis, cfg.Security.RatePrefix),
		csrf:    csrf.New(b.redis, cfg.CSRF.RedisPrefix, cfg.CSRF.TokenBytes, cfg.CSRF.TokenTTL),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink, func() { metrics.Inc(MetricAuditDropped) }),
		metrics: metrics,
	}

	authority.credentials = b.credentials

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	authority.hasher = hasher

	b.built = true

	return authority, nil
}
