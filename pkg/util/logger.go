package util

import (
	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// NewLogConstructor returns a log constructor for controllers that tags every
// reconcile log line with the kind and object key being reconciled.
func NewLogConstructor(logger logr.Logger, kind string) func(*reconcile.Request) logr.Logger {
	return func(req *reconcile.Request) logr.Logger {
		log := logger.WithValues("kind", kind)
		if req != nil {
			log = log.WithValues("namespace", req.Namespace, "name", req.Name)
		}
		return log
	}
}
