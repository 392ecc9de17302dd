package di

import (
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/application/ports"
	"github.com/gumnutdev/quick-notes/application/services"
	"github.com/gumnutdev/quick-notes/infrastructure/config"
	"github.com/gumnutdev/quick-notes/interfaces/http/rest"
	"github.com/gumnutdev/quick-notes/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	LogLevel    zap.AtomicLevel
	Logger      *zap.Logger
	Store       ports.NoteStore
	Cache       ports.Cache
	Publisher   ports.EventPublisher
	NoteService *services.NoteService
	Router      *rest.Router
	Metrics     *observability.Collector
	Tracer      *observability.Tracer
}
