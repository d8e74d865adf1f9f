package notify

import (
	"fmt"
	"os/exec"

	"github.com/charmbracelet/log"
)

const appName = "Tsukkomi"

type Notifier interface {
	SessionStarted()
	SessionStopped()
	Interjection(persona, comment string, severity int)
	Error(msg string)
}

// New returns the notifier for a config type: "desktop", "log" or "none".
func New(kind string, logger *log.Logger) Notifier {
	switch kind {
	case "desktop":
		return Desktop{Logger: logger}
	case "log":
		return Log{Logger: logger}
	default:
		return Nop{}
	}
}

// Desktop sends notifications through notify-send.
type Desktop struct {
	Logger *log.Logger
}

func (d Desktop) SessionStarted() { d.send("normal", appName, "会議の文字起こしを開始しました") }
func (d Desktop) SessionStopped() { d.send("low", appName, "会議の文字起こしを停止しました") }

func (d Desktop) Interjection(persona, comment string, severity int) {
	d.send(urgency(severity), fmt.Sprintf("%s (%d/5)", persona, severity), comment)
}

func (d Desktop) Error(msg string) { d.send("critical", appName+": エラー", msg) }

func (d Desktop) send(urgency, title, body string) {
	cmd := exec.Command("notify-send", "-a", appName, "-u", urgency, title, body)
	if err := cmd.Run(); err != nil {
		logger(d.Logger).Warn("failed to send notification", "err", err)
	}
}

func urgency(severity int) string {
	switch {
	case severity >= 4:
		return "critical"
	case severity >= 2:
		return "normal"
	default:
		return "low"
	}
}

// Log writes notifications to the logger instead of the desktop.
type Log struct {
	Logger *log.Logger
}

func (l Log) SessionStarted() { logger(l.Logger).Info("session started") }
func (l Log) SessionStopped() { logger(l.Logger).Info("session stopped") }

func (l Log) Interjection(persona, comment string, severity int) {
	logger(l.Logger).Info("interjection", "persona", persona, "severity", severity, "comment", comment)
}

func (l Log) Error(msg string) { logger(l.Logger).Error(msg) }

func logger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default().WithPrefix("notify")
	}
	return l
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) SessionStarted()                  {}
func (Nop) SessionStopped()                  {}
func (Nop) Interjection(string, string, int) {}
func (Nop) Error(string)                     {}
