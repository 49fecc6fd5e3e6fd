package handlers

import (
	"github.com/sirupsen/logrus"

	"wayuu-ingest/pipeline"
)

var log *logrus.Logger
var svc *pipeline.Service

func Init(logger *logrus.Logger, service *pipeline.Service) error {
	log = logger.WithFields(logrus.Fields{
		"component": "handlers",
	}).Logger
	svc = service
	return nil
}

func Fini() {}
