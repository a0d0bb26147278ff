package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IdentifierGenerator genera números de factura y folios fiscales únicos
type IdentifierGenerator interface {
	InvoiceNumber(ctx context.Context) (string, error)
	FiscalFolio(ctx context.Context) (string, error)
}

// UUIDIdentifierGenerator genera identificadores a partir de un UUID aleatorio y la hora en milisegundos
type UUIDIdentifierGenerator struct {
	now func() time.Time
}

// NewUUIDIdentifierGenerator crea el generador basado en UUID
func NewUUIDIdentifierGenerator() *UUIDIdentifierGenerator {
	return &UUIDIdentifierGenerator{now: time.Now}
}

// InvoiceNumber retorna "INV-XXXXXXXX-<millis>"
func (g *UUIDIdentifierGenerator) InvoiceNumber(context.Context) (string, error) {
	return g.format("INV-", 8), nil
}

// FiscalFolio retorna "FISCAL-XXXXXXXX-XXXX-XX-<millis>"
func (g *UUIDIdentifierGenerator) FiscalFolio(context.Context) (string, error) {
	return g.format("FISCAL-", 16), nil
}

func (g *UUIDIdentifierGenerator) format(prefix string, length int) string {
	random := strings.ToUpper(uuid.NewString()[:length])
	return fmt.Sprintf("%s%s-%d", prefix, random, g.now().UnixMilli())
}

// Sequencer entrega valores crecientes por clave
type Sequencer interface {
	NextSequence(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisIdentifierGenerator genera identificadores secuenciales por día usando contadores de Redis.
// Si Redis no responde se usa el generador de respaldo.
type RedisIdentifierGenerator struct {
	sequencer Sequencer
	fallback  IdentifierGenerator
	logger    *logrus.Logger
	now       func() time.Time
}

// NewRedisIdentifierGenerator crea el generador secuencial
func NewRedisIdentifierGenerator(sequencer Sequencer, fallback IdentifierGenerator, logger *logrus.Logger) *RedisIdentifierGenerator {
	return &RedisIdentifierGenerator{
		sequencer: sequencer,
		fallback:  fallback,
		logger:    logger,
		now:       time.Now,
	}
}

// InvoiceNumber retorna "INV-YYYYMMDD-NNNNNN"
func (g *RedisIdentifierGenerator) InvoiceNumber(ctx context.Context) (string, error) {
	return g.next(ctx, "INV", g.fallback.InvoiceNumber)
}

// FiscalFolio retorna "FISCAL-YYYYMMDD-NNNNNN"
func (g *RedisIdentifierGenerator) FiscalFolio(ctx context.Context) (string, error) {
	return g.next(ctx, "FISCAL", g.fallback.FiscalFolio)
}

func (g *RedisIdentifierGenerator) next(ctx context.Context, prefix string, fallback func(context.Context) (string, error)) (string, error) {
	day := g.now().UTC().Format("20060102")
	key := fmt.Sprintf("invoicing:seq:%s:%s", strings.ToLower(prefix), day)

	seq, err := g.sequencer.NextSequence(ctx, key, 48*time.Hour)
	if err != nil {
		g.logger.WithError(err).WithField("key", key).Warn("Sequence unavailable, falling back to random identifier")
		return fallback(ctx)
	}

	return fmt.Sprintf("%s-%s-%06d", prefix, day, seq), nil
}
