package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSequencer struct {
	counters map[string]int64
	keys     []string
	err      error
}

func (f *fakeSequencer) NextSequence(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counters == nil {
		f.counters = map[string]int64{}
	}
	f.keys = append(f.keys, key)
	f.counters[key]++
	return f.counters[key], nil
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
}

func TestUUIDIdentifierGenerator(t *testing.T) {
	gen := NewUUIDIdentifierGenerator()
	gen.now = fixedClock

	number, err := gen.InvoiceNumber(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, `^INV-[0-9A-F]{8}-1740871800000$`, number)

	folio, err := gen.FiscalFolio(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, `^FISCAL-[0-9A-F]{8}-[0-9A-F]{4}-[0-9A-F]{2}-1740871800000$`, folio)

	other, err := gen.InvoiceNumber(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, number, other)
}

func TestRedisIdentifierGenerator_Sequential(t *testing.T) {
	seq := &fakeSequencer{}
	gen := NewRedisIdentifierGenerator(seq, NewUUIDIdentifierGenerator(), testLogger())
	gen.now = fixedClock

	first, err := gen.InvoiceNumber(context.Background())
	require.NoError(t, err)
	second, err := gen.InvoiceNumber(context.Background())
	require.NoError(t, err)
	folio, err := gen.FiscalFolio(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "INV-20250301-000001", first)
	assert.Equal(t, "INV-20250301-000002", second)
	assert.Equal(t, "FISCAL-20250301-000001", folio)
	assert.Equal(t, "invoicing:seq:inv:20250301", seq.keys[0])
	assert.Equal(t, "invoicing:seq:fiscal:20250301", seq.keys[2])
}

func TestRedisIdentifierGenerator_FallsBack(t *testing.T) {
	seq := &fakeSequencer{err: errors.New("connection refused")}
	gen := NewRedisIdentifierGenerator(seq, NewUUIDIdentifierGenerator(), testLogger())

	number, err := gen.InvoiceNumber(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, `^INV-[0-9A-F]{8}-\d+$`, number)
}
