// Package state defines shared program state.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hbc/common"
	"hbc/config"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// set by build and prepare subcommands from command line, override
	// configuration when present
	Overwrite    bool
	NoCover      bool
	OutputFormat *common.OutputFmt
	DefaultStyle []byte

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// Format returns requested output format: command line wins over
// configuration.
func (e *LocalEnv) Format() common.OutputFmt {
	if e.OutputFormat != nil {
		return *e.OutputFormat
	}
	if e.Cfg != nil {
		return e.Cfg.Output.Format
	}
	return common.OutputFmtEpub3
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
