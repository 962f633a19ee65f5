package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/groupgraph/api/manager/domain"
	"github.com/groupgraph/api/pkg/logger"
)

// callPlugin runs fn and reports a panic as an error.
func callPlugin(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked: %v", name, r)
		}
	}()
	return fn()
}

// isolatePluginError decides what a plugin failure means to the caller: a
// rejection is returned, anything else is logged and dropped.
func (svc *Service) isolatePluginError(ctx context.Context, name string, err error) error {
	if err == nil {
		return nil
	}
	var rejection *domain.PluginRejection
	if errors.As(err, &rejection) {
		return err
	}
	svc.metricCollector.pluginFailures.WithLabelValues(name).Inc()
	logger.Logger(ctx).Warn().Err(err).Str("plugin", name).Msg("plugin failed, skipped")
	return nil
}

// mergePluginOwners adds every ownership plugin's entries to owners in
// plugin order.
func (svc *Service) mergePluginOwners(ctx context.Context, owners domain.OwnersByArgByPerm, now time.Time) error {
	for _, plugin := range svc.ownershipPlugins {
		name := plugin.Name()
		var contributed domain.OwnersByArgByPerm
		err := callPlugin(name, func() error {
			var err error
			contributed, err = plugin.OwnersByArgByPerm(ctx, svc.Repo, now)
			return err
		})
		if err := svc.isolatePluginError(ctx, name, err); err != nil {
			return err
		}
		if err == nil {
			owners.Merge(contributed)
		}
	}
	return nil
}

func (svc *Service) principalCreated(ctx context.Context, member domain.Member, name string) error {
	for _, plugin := range svc.principalPlugins {
		pluginName := plugin.Name()
		err := callPlugin(pluginName, func() error {
			return plugin.PrincipalCreated(ctx, member, name)
		})
		if err := svc.isolatePluginError(ctx, pluginName, err); err != nil {
			return err
		}
	}
	return nil
}
