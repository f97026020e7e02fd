package main

import (
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const statsURL = "/debug/statsview"

// startStats serves runtime charts on addr until the returned func is called.
func startStats(addr string) func() {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()
	go func() {
		if err := mgr.Start(); err != nil {
			slog.Debug("stats server stopped", "error", err)
		}
	}()
	slog.Info("stats server available", "url", "http://"+addr+statsURL)
	return mgr.Stop
}
