package logger

import "go.uber.org/zap"

// New builds the service logger for the given environment. "production"
// gets the JSON encoder at info level; anything else gets the console
// encoder with debug enabled. Main constructs it once and passes it down.
func New(env string) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if env == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
