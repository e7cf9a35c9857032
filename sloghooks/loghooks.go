// Package sloghooks reports swrcache storage events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
	pr "github.com/unkn0wn-root/swrcache/provider"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	FaultEvery    uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	faultCtr    atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("swrcache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

// StorageFault logs rejected writes at info and every other fault at warn.
func (h *Hooks) StorageFault(err *swrcache.StorageError) {
	if h.l == nil || err == nil || !sample(h.opts.FaultEvery, &h.faultCtr) {
		return
	}
	if errors.Is(err, pr.ErrRejected) {
		h.l.Info("swrcache.write_rejected",
			"key", h.redact(err.Key))
		return
	}
	h.l.Warn("swrcache.storage_fault",
		"op", err.Op,
		"key", h.redact(err.Key),
		"err", err.Err)
}
