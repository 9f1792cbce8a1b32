package mysql

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	domainafip "github.com/jhoicas/afip-bridge/internal/domain/afip"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

const defaultIdleTimeout = 30 * time.Minute

// ConnectorOptions parámetros del Connector.
type ConnectorOptions struct {
	// IdleTimeout cierra las conexiones de un tenant sin uso por este tiempo.
	IdleTimeout time.Duration
	// Open abre la base a partir del DSN; por defecto sql.Open("mysql", dsn).
	Open func(dsn string) (*sql.DB, error)
	Now  func() time.Time
}

// Connector mantiene un *sql.DB por base ERP (host, puerto, base, usuario y clave).
// Las conexiones sin uso se cierran al acceder, sin timers en segundo plano; una
// conexión tomada con Acquire no se cierra hasta liberarla.
type Connector struct {
	mu    sync.Mutex
	conns map[string]*pooledDB
	idle  time.Duration
	open  func(dsn string) (*sql.DB, error)
	now   func() time.Time
	log   *logger.Logger
}

type pooledDB struct {
	db       *sql.DB
	label    string
	inUse    int
	lastUsed time.Time
}

// NewConnector construye el cache de conexiones.
func NewConnector(log *logger.Logger, opts ConnectorOptions) *Connector {
	if log == nil {
		log = logger.Nop()
	}
	c := &Connector{
		conns: make(map[string]*pooledDB),
		idle:  opts.IdleTimeout,
		open:  opts.Open,
		now:   opts.Now,
		log:   log,
	}
	if c.idle <= 0 {
		c.idle = defaultIdleTimeout
	}
	if c.open == nil {
		c.open = func(dsn string) (*sql.DB, error) { return sql.Open("mysql", dsn) }
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// DSN arma el DSN del driver para la conexión ERP del tenant.
func DSN(conn entity.ERPConnection) string {
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	cfg := gomysql.NewConfig()
	cfg.User = conn.User
	cfg.Passwd = conn.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(conn.Host, strconv.Itoa(port))
	cfg.DBName = conn.Database
	cfg.ParseTime = true
	cfg.Loc = domainafip.Location()
	cfg.Timeout = 5 * time.Second
	cfg.ReadTimeout = 30 * time.Second
	cfg.WriteTimeout = 30 * time.Second
	return cfg.FormatDSN()
}

// connKey distingue credenciales: rotar la clave abre un pool nuevo.
func connKey(conn entity.ERPConnection) string {
	sum := sha256.Sum256([]byte(conn.Password))
	return connLabel(conn) + "#" + hex.EncodeToString(sum[:8])
}

// connLabel identifica la base en los logs, sin datos de la clave.
func connLabel(conn entity.ERPConnection) string {
	return fmt.Sprintf("%s@%s:%d/%s", conn.User, conn.Host, conn.Port, conn.Database)
}

// Acquire devuelve la conexión del tenant, abriéndola si no existe. release
// debe llamarse al terminar de usarla; recién entonces cuenta la inactividad.
func (c *Connector) Acquire(ctx context.Context, tenant *entity.Tenant) (*sql.DB, func(), error) {
	if !tenant.ERP.Configured() {
		return nil, nil, fmt.Errorf("tenant %s sin base ERP configurada", tenant.ID)
	}
	key := connKey(tenant.ERP)
	label := connLabel(tenant.ERP)

	c.mu.Lock()
	c.evictIdleLocked(c.now())
	if p, ok := c.conns[key]; ok {
		p.inUse++
		c.mu.Unlock()
		return p.db, c.releaser(p), nil
	}
	c.mu.Unlock()

	db, err := c.open(DSN(tenant.ERP))
	if err != nil {
		return nil, nil, fmt.Errorf("abrir base ERP: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping base ERP %s: %w", label, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.conns[key]
	if ok {
		// otra goroutine la abrió mientras tanto
		_ = db.Close()
	} else {
		p = &pooledDB{db: db, label: label, lastUsed: c.now()}
		c.conns[key] = p
		c.log.Info().Str("erp", label).Msg("conexión ERP abierta")
	}
	p.inUse++
	return p.db, c.releaser(p), nil
}

func (c *Connector) releaser(p *pooledDB) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			p.inUse--
			p.lastUsed = c.now()
			c.mu.Unlock()
		})
	}
}

func (c *Connector) evictIdleLocked(now time.Time) {
	for key, p := range c.conns {
		if p.inUse > 0 || now.Sub(p.lastUsed) < c.idle {
			continue
		}
		if err := p.db.Close(); err != nil {
			c.log.Warn().Err(err).Str("erp", p.label).Msg("error cerrando conexión ERP inactiva")
		}
		delete(c.conns, key)
		c.log.Info().Str("erp", p.label).Msg("conexión ERP inactiva cerrada")
	}
}

// Len cantidad de conexiones abiertas.
func (c *Connector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

// Close cierra todas las conexiones.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for key, p := range c.conns {
		if err := p.db.Close(); err != nil && first == nil {
			first = err
		}
		delete(c.conns, key)
	}
	return first
}
