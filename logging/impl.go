package logging

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type impl struct {
	name  string
	level AtomicLevel
	inUTC bool

	mu        *sync.RWMutex
	appenders *[]Appender
}

func newImpl(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(level),
		inUTC:     inUTC,
		mu:        &sync.RWMutex{},
		appenders: &appenders,
	}
}

func (imp *impl) AddAppender(appender Appender) {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	*imp.appenders = append(*imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}

	return &impl{
		name:      newName,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		mu:        imp.mu,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	imp.mu.RLock()
	defer imp.mu.RUnlock()

	var errs []error
	for _, appender := range *imp.appenders {
		if err := appender.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	imp.mu.RLock()
	defer imp.mu.RUnlock()

	// Appenders that are zap cores (observers) are teed in as-is; the rest are wrapped.
	cores := make([]zapcore.Core, 0, len(*imp.appenders))
	enabler := zap.NewAtomicLevelAt(imp.level.Get().AsZap())
	for _, appender := range *imp.appenders {
		if core, ok := appender.(zapcore.Core); ok {
			cores = append(cores, core)
			continue
		}
		cores = append(cores, &appenderCore{LevelEnabler: enabler, appender: appender})
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar().Named(imp.name)
}

// appenderCore adapts an Appender into a zapcore.Core.
type appenderCore struct {
	zapcore.LevelEnabler
	appender Appender
	fields   []zapcore.Field
}

func (c *appenderCore) With(fields []zapcore.Field) zapcore.Core {
	return &appenderCore{
		LevelEnabler: c.LevelEnabler,
		appender:     c.appender,
		fields:       append(append([]zapcore.Field{}, c.fields...), fields...),
	}
}

func (c *appenderCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *appenderCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return c.appender.Write(entry, append(append([]zapcore.Field{}, c.fields...), fields...))
}

func (c *appenderCore) Sync() error {
	return c.appender.Sync()
}

func (imp *impl) shouldLog(logLevel Level) bool {
	return logLevel >= imp.level.Get()
}

func (imp *impl) newEntry(logLevel Level, msg string) zapcore.Entry {
	entry := zapcore.Entry{
		Level:      logLevel.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     getCaller(),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	return entry
}

func (imp *impl) log(entry zapcore.Entry, fields []zapcore.Field) {
	imp.mu.RLock()
	defer imp.mu.RUnlock()

	for _, appender := range *imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

// Turns `keysAndValues` into fields where the odd elements are the keys and their following even
// counterpart is the value.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, len(keysAndValues)/2)
	for keyIdx := 0; keyIdx < len(keysAndValues); keyIdx += 2 {
		keyObj := keysAndValues[keyIdx]
		var keyStr string
		if stringer, ok := keyObj.(fmt.Stringer); ok {
			keyStr = stringer.String()
		} else {
			keyStr = fmt.Sprintf("%v", keyObj)
		}

		if keyIdx+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(keyStr, keysAndValues[keyIdx+1]))
		} else {
			// API mis-use. Slip in an error so the key is not silently dropped.
			fields = append(fields, zap.Any(keyStr, errors.New("unpaired log key")))
		}
	}
	return fields
}

func (imp *impl) logArgs(logLevel Level, args ...interface{}) {
	if imp.shouldLog(logLevel) {
		imp.log(imp.newEntry(logLevel, fmt.Sprint(args...)), nil)
	}
}

func (imp *impl) logf(logLevel Level, template string, args ...interface{}) {
	if imp.shouldLog(logLevel) {
		imp.log(imp.newEntry(logLevel, fmt.Sprintf(template, args...)), nil)
	}
}

func (imp *impl) logw(logLevel Level, msg string, keysAndValues ...interface{}) {
	if imp.shouldLog(logLevel) {
		imp.log(imp.newEntry(logLevel, msg), toFields(keysAndValues))
	}
}

func (imp *impl) Debug(args ...interface{}) {
	imp.logArgs(DEBUG, args...)
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.logf(DEBUG, template, args...)
}

func (imp *impl) Debugw(msg string, kvs ...interface{}) {
	imp.logw(DEBUG, msg, kvs...)
}

func (imp *impl) Info(args ...interface{}) {
	imp.logArgs(INFO, args...)
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.logf(INFO, template, args...)
}

func (imp *impl) Infow(msg string, kvs ...interface{}) {
	imp.logw(INFO, msg, kvs...)
}

func (imp *impl) Warn(args ...interface{}) {
	imp.logArgs(WARN, args...)
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.logf(WARN, template, args...)
}

func (imp *impl) Warnw(msg string, kvs ...interface{}) {
	imp.logw(WARN, msg, kvs...)
}

func (imp *impl) Error(args ...interface{}) {
	imp.logArgs(ERROR, args...)
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.logf(ERROR, template, args...)
}

func (imp *impl) Errorw(msg string, kvs ...interface{}) {
	imp.logw(ERROR, msg, kvs...)
}

// getCaller returns the first frame outside of this package. The skip count accounts for
// getCaller, newEntry, the log helper and the public method.
func getCaller() zapcore.EntryCaller {
	const framesToSkip = 4
	pc, file, line, ok := runtime.Caller(framesToSkip)
	ret := zapcore.EntryCaller{Defined: ok, PC: pc, File: file, Line: line}
	if fn := runtime.FuncForPC(pc); ok && fn != nil {
		ret.Function = fn.Name()
	}
	return ret
}
