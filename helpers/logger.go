package helpers

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	tb "gopkg.in/tucnak/telebot.v2"
)

type FileLogger struct {
	telegramOutput bool
	telegramToken  string
	telegramChatId string
	logFile        io.Closer
}

var defaultLogger *log.Logger
var Logger = &FileLogger{}

func init() {
	plainFormatter := new(PlainFormatter)
	plainFormatter.TimestampFormat = "2006-01-02 15:04:05"
	plainFormatter.LevelDesc = []string{"PANIC", "FATAL", "ERROR", "WARN ", "INFO ", "DEBUG", "TRACE"}
	defaultLogger = log.New()
	defaultLogger.SetOutput(os.Stderr)
	defaultLogger.SetFormatter(plainFormatter)
	defaultLogger.SetLevel(log.InfoLevel)
}

// ConfigureLogger moves log output to logFile, since the terminal belongs to the
// dashboard, and enables telegram forwarding of warnings when the env asks for it.
func ConfigureLogger(logFile string, level string) error {
	if logFile == "" {
		logFile = "tickrs.log"
	}
	f, err := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}

	parsedLevel := log.InfoLevel
	if level != "" {
		parsedLevel, err = log.ParseLevel(level)
		if err != nil {
			_ = f.Close()
			return err
		}
	}

	telegramOutput, _ := strconv.ParseBool(os.Getenv("telegramOutput"))
	if telegramOutput {
		if os.Getenv("telegramToken") == "" {
			_ = f.Close()
			return fmt.Errorf("telegramOutput set to true but telegramToken parameter not found")
		}
		if os.Getenv("telegramChatId") == "" {
			_ = f.Close()
			return fmt.Errorf("telegramOutput set to true but telegramChatId parameter not found")
		}
	}

	defaultLogger.SetOutput(f)
	defaultLogger.SetLevel(parsedLevel)
	Logger.logFile = f
	Logger.telegramOutput = telegramOutput
	Logger.telegramToken = os.Getenv("telegramToken")
	Logger.telegramChatId = os.Getenv("telegramChatId")
	return nil
}

func (l *FileLogger) Close() {
	if l.logFile != nil {
		_ = l.logFile.Close()
		defaultLogger.SetOutput(os.Stderr)
		l.logFile = nil
	}
}

func (l *FileLogger) Errorln(args ...interface{}) {
	defaultLogger.Errorln(args...)
}

func (l *FileLogger) Warnln(args ...interface{}) {
	defaultLogger.Warnln(args...)
	if l.telegramOutput {
		go func(message string) {
			if err := sendOnTelegramChannel(message, l.telegramToken, l.telegramChatId); err != nil {
				defaultLogger.Errorln("telegram: " + err.Error())
			}
		}(fmt.Sprint(args...))
	}
}

func (l *FileLogger) Infoln(args ...interface{}) {
	defaultLogger.Infoln(args...)
}

func (l *FileLogger) Traceln(args ...interface{}) {
	defaultLogger.Traceln(args...)
}

func (l *FileLogger) Debugln(args ...interface{}) {
	defaultLogger.Debugln(args...)
}

type PlainFormatter struct {
	TimestampFormat string
	LevelDesc       []string
}

func (f PlainFormatter) Format(entry *log.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)
	return []byte(fmt.Sprintf("%s %s %s\n", f.LevelDesc[entry.Level], timestamp, entry.Message)), nil
}

func sendOnTelegramChannel(message string, token string, chatID string) error {
	b, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return err
	}

	id, err := b.ChatByID(chatID)
	if err != nil {
		return err
	}
	_, err = b.Send(id, message)
	return err
}
