package logsvc

import (
	"fmt"
	"io"

	"github.com/labstack/gommon/log"
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/sanity-io/litter"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/user"
)

// RollbarLogger prints to the console and reports to rollbar when a token is configured.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(out io.Writer, conf *core.Config) *RollbarLogger {
	std := log.New(conf.AppName)
	std.SetOutput(out)
	std.SetHeader("${time_rfc3339} ${level} ${prefix}")
	std.SetLevel(log.INFO)
	if conf.Debug {
		std.SetLevel(log.DEBUG)
	}

	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "")
	return &RollbarLogger{std: std, debug: conf.Debug}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set logged in User
		if usr, ok := arg.(user.User); ok {
			if !usrSet { // only set one User
				rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
				usrSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

// line renders args after msg; full dumps in debug mode.
func (l RollbarLogger) line(msg string, args []interface{}) string {
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			msg += fmt.Sprintf(" | %+v", a)
		case user.User:
			msg += " | user=" + a.Username
		default:
			if l.debug {
				msg += " | " + litter.Sdump(a)
			} else {
				msg += fmt.Sprintf(" | %v", a)
			}
		}
	}
	return msg
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.std.Debug(l.line(msg, args))
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.std.Info(l.line(msg, args))
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.std.Warn(l.line(msg, args))
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.std.Error(l.line(msg, args))
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.std.Fatal(l.line(msg, args))
}
