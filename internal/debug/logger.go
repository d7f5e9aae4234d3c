package debug

import (
	"fmt"
	"sync"
	"time"
)

// Logger is the engine's single logging sink: every component (audio,
// text, shader, mask, image, surface, engine) funnels its entries through
// one channel into one writer goroutine, matching the teacher's
// channel-fed actor idiom for serializing concurrent writers without a
// lock held across I/O. Unlike the teacher's logger, nothing here ever
// reads history back — cmd/vjengine has no log-viewer UI, no
// debugger/trace-dump tool to page through old entries — so there is no
// ring buffer: each entry is printed as it arrives and then forgotten.
type Logger struct {
	logChan  chan LogEntry
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewLogger creates a logger and starts its writer goroutine.
func NewLogger() *Logger {
	logger := &Logger{
		logChan:  make(chan LogEntry, 1000),
		shutdown: make(chan struct{}),
	}
	logger.wg.Add(1)
	go logger.processLogs()
	return logger
}

// processLogs drains logChan onto stdout until Shutdown is called, then
// flushes whatever is left before returning.
func (l *Logger) processLogs() {
	defer l.wg.Done()
	for {
		select {
		case entry := <-l.logChan:
			fmt.Println(entry.Format())
		case <-l.shutdown:
			for {
				select {
				case entry := <-l.logChan:
					fmt.Println(entry.Format())
				default:
					return
				}
			}
		}
	}
}

// Log sends one entry to the writer goroutine. The channel send is
// non-blocking: a full channel means the writer has fallen behind, and
// dropping the entry is preferable to stalling whichever tile called in.
func (l *Logger) Log(component Component, level LogLevel, message string, data map[string]interface{}) {
	entry := LogEntry{
		Timestamp: time.Now(),
		Component: component,
		Level:     level,
		Message:   message,
		Data:      data,
	}
	select {
	case l.logChan <- entry:
	default:
	}
}

// Logf logs a formatted message.
func (l *Logger) Logf(component Component, level LogLevel, format string, args ...interface{}) {
	l.Log(component, level, fmt.Sprintf(format, args...), nil)
}

// Convenience methods for each component.
func (l *Logger) LogAudio(level LogLevel, message string, data map[string]interface{}) {
	l.Log(ComponentAudio, level, message, data)
}

func (l *Logger) LogText(level LogLevel, message string, data map[string]interface{}) {
	l.Log(ComponentText, level, message, data)
}

func (l *Logger) LogShader(level LogLevel, message string, data map[string]interface{}) {
	l.Log(ComponentShader, level, message, data)
}

func (l *Logger) LogMask(level LogLevel, message string, data map[string]interface{}) {
	l.Log(ComponentMask, level, message, data)
}

func (l *Logger) LogImage(level LogLevel, message string, data map[string]interface{}) {
	l.Log(ComponentImage, level, message, data)
}

func (l *Logger) LogSurface(level LogLevel, message string, data map[string]interface{}) {
	l.Log(ComponentSurface, level, message, data)
}

func (l *Logger) LogEngine(level LogLevel, message string, data map[string]interface{}) {
	l.Log(ComponentEngine, level, message, data)
}

// Convenience methods with formatted strings.
func (l *Logger) LogAudiof(level LogLevel, format string, args ...interface{}) {
	l.Logf(ComponentAudio, level, format, args...)
}

func (l *Logger) LogTextf(level LogLevel, format string, args ...interface{}) {
	l.Logf(ComponentText, level, format, args...)
}

func (l *Logger) LogShaderf(level LogLevel, format string, args ...interface{}) {
	l.Logf(ComponentShader, level, format, args...)
}

func (l *Logger) LogMaskf(level LogLevel, format string, args ...interface{}) {
	l.Logf(ComponentMask, level, format, args...)
}

func (l *Logger) LogImagef(level LogLevel, format string, args ...interface{}) {
	l.Logf(ComponentImage, level, format, args...)
}

func (l *Logger) LogSurfacef(level LogLevel, format string, args ...interface{}) {
	l.Logf(ComponentSurface, level, format, args...)
}

func (l *Logger) LogEnginef(level LogLevel, format string, args ...interface{}) {
	l.Logf(ComponentEngine, level, format, args...)
}

// Shutdown stops accepting new work conceptually by draining whatever is
// already queued and waiting for the writer goroutine to exit. Logf/Log
// calls after Shutdown still enqueue (the channel isn't closed) but
// nothing will ever drain them again, so callers stop logging once they
// call this — cmd/vjengine does so on its way out.
func (l *Logger) Shutdown() {
	close(l.shutdown)
	l.wg.Wait()
}
