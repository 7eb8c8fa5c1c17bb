package core

// Logger logs & reports messages.
// expected args: error, map[string]interface{}, user.User (reported as the current person)
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
