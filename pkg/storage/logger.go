package storage

import "github.com/sirupsen/logrus"

// badgerLogger implements badger.Logger on a logrus entry
// Badger's info output (compactions, value log replay) is demoted to debug
type badgerLogger struct {
	entry *logrus.Entry
}

func newBadgerLogger(entry *logrus.Entry) *badgerLogger {
	return &badgerLogger{entry: entry}
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.entry.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.entry.Warningf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.entry.Debugf(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.entry.Tracef(f, v...) }
