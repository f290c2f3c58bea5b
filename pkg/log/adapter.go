package log

import "github.com/sirupsen/logrus"

// BadgerAdapter routes BadgerDB's internal logging through a logrus entry so
// the lead database shares the application's log format.
type BadgerAdapter struct {
	entry *logrus.Entry
}

// NewBadgerAdapter wraps a logrus entry in the badger.Logger interface.
func NewBadgerAdapter(entry *logrus.Entry) *BadgerAdapter {
	return &BadgerAdapter{entry: entry}
}

func (a *BadgerAdapter) Errorf(f string, v ...interface{})   { a.entry.Errorf(f, v...) }
func (a *BadgerAdapter) Warningf(f string, v ...interface{}) { a.entry.Warningf(f, v...) }
func (a *BadgerAdapter) Infof(f string, v ...interface{})    { a.entry.Debugf(f, v...) }
func (a *BadgerAdapter) Debugf(f string, v ...interface{})   { a.entry.Debugf(f, v...) }
