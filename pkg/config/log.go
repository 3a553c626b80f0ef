package config

import (
	"io"
	"log/slog"
	"strings"

	"github.com/WessleyAI/legisearch/engine/legis"
)

// SlogLevel parses Level. An empty level is info.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return lvl, legis.Configf("log.level: %v", err)
	}
	return lvl, nil
}

// NewLogger builds a text or JSON slog logger writing to w.
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := l.SlogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
