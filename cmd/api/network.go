package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/db"
	"github.com/urmzd/zwcore/pkg/manager"
)

const storeTimeout = 5 * time.Second

// persistentNetwork remembers attached endpoints so they are reattached
// on the next start.
type persistentNetwork struct {
	*manager.Manager
	endpoints db.EndpointStore
}

func (n *persistentNetwork) AddDriver(endpoint string) error {
	if err := n.Manager.AddDriver(endpoint); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := n.endpoints.Add(ctx, endpoint); err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to remember endpoint")
	}
	return nil
}

// RemoveDriver disables rather than deletes the endpoint so that an empty
// table does not trigger bootstrapping again.
func (n *persistentNetwork) RemoveDriver(endpoint string) error {
	if err := n.Manager.RemoveDriver(endpoint); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := n.endpoints.SetEnabled(ctx, endpoint, false); err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to forget endpoint")
	}
	return nil
}
