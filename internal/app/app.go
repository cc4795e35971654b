// Package app wires the tabhouse services over a shared SQLite store.
package app

import (
	"context"

	"github.com/louisbranch/tabhouse/internal/bus"
	"github.com/louisbranch/tabhouse/internal/menu"
	"github.com/louisbranch/tabhouse/internal/outbox"
	"github.com/louisbranch/tabhouse/internal/storage/sqlite"
	"github.com/louisbranch/tabhouse/internal/tab/command"
	"github.com/louisbranch/tabhouse/internal/tab/projection"
	"github.com/louisbranch/tabhouse/internal/tab/query"
	"github.com/louisbranch/tabhouse/internal/table"
)

// Options configures optional app collaborators.
type Options struct {
	// Publisher, when set, receives every relayed event after the local
	// projection has applied it. Typically the AMQP publisher.
	Publisher bus.Publisher
	// RelayOptions tune the outbox relay.
	RelayOptions []outbox.RelayOption
}

// App bundles the wired services. Commands append to the journal; the relay
// folds committed events into views and fans them out on the bus.
type App struct {
	Store     *sqlite.Store
	Menu      *menu.Service
	Tables    *table.Service
	Commands  *command.Service
	Queries   *query.Service
	Projector *projection.Projector
	Bus       *bus.Memory
	Relay     *outbox.Relay
}

// New wires an app over store.
func New(store *sqlite.Store, opts Options) *App {
	menuSvc := menu.NewService(store)
	tableSvc := table.NewService(store)
	commandSvc := command.NewService(store, menuSvc, tableSvc)
	querySvc := query.NewService(store)
	projector := projection.NewProjector(store)
	memBus := bus.NewMemory()

	handlers := []outbox.Handler{
		projector.ApplyEvent,
		memBus.Publish,
	}
	if opts.Publisher != nil {
		handlers = append(handlers, opts.Publisher.Publish)
	}
	relay := outbox.NewRelay(store, handlers, opts.RelayOptions...)

	return &App{
		Store:     store,
		Menu:      menuSvc,
		Tables:    tableSvc,
		Commands:  commandSvc,
		Queries:   querySvc,
		Projector: projector,
		Bus:       memBus,
		Relay:     relay,
	}
}

// Run drains the outbox until ctx is done.
func (a *App) Run(ctx context.Context) error {
	return a.Relay.Run(ctx)
}
