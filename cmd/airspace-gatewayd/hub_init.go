package main

import (
	"log/slog"

	"github.com/uviespace/airspace-compress/internal/gateway"
)

func initHub(cfg *appConfig, l *slog.Logger) *gateway.Hub {
	h := gateway.NewHub()
	h.OutBufSize = cfg.hubBuffer
	switch cfg.hubPolicy {
	case "drop":
		h.Policy = gateway.PolicyDrop
	case "kick":
		h.Policy = gateway.PolicyKick
	default:
		l.Warn("unknown_hub_policy", "policy", cfg.hubPolicy, "used", "drop")
		h.Policy = gateway.PolicyDrop
	}
	policyStr := map[gateway.BackpressurePolicy]string{gateway.PolicyDrop: "drop", gateway.PolicyKick: "kick"}[h.Policy]
	l.Info("build_info", "version", version, "commit", commit, "date", date)
	l.Info("hub_config", "policy", policyStr, "buffer", h.OutBufSize)
	return h
}
