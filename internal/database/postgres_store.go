package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"
)

// PostgresStore implementa Store sobre PostgreSQL
type PostgresStore struct {
	db        *DB
	logger    *logrus.Logger
	txTimeout time.Duration
}

// NewPostgresStore crea el almacén sobre una conexión abierta.
// txTimeout acota la duración de cada transacción; cero la deja sin límite propio.
func NewPostgresStore(db *DB, logger *logrus.Logger, txTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		db:        db,
		logger:    logger,
		txTimeout: txTimeout,
	}
}

// Repositories retorna repositorios que operan directamente sobre el pool
func (s *PostgresStore) Repositories() Repositories {
	return s.repositories(s.db)
}

// WithTransaction ejecuta fn dentro de una transacción de base de datos
func (s *PostgresStore) WithTransaction(ctx context.Context, fn func(Repositories) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(s.repositories(tx))
	})
}

// HealthCheck verifica la conexión
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Close cierra la conexión
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) repositories(q Querier) Repositories {
	return Repositories{
		Invoices:  NewInvoiceRepository(q, s.logger),
		Shipments: NewShipmentRepository(q, s.logger),
		Audit:     NewAuditRepository(q, s.logger),
		PDFLogs:   NewPDFLogRepository(q, s.logger),
	}
}
