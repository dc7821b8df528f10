package atspi

import (
	"context"

	"github.com/mj1618/a11y-tree/internal/model"
	"github.com/sirupsen/logrus"
)

// App is one top-level application root on the a11y bus.
type App struct {
	Handle     model.Handle `yaml:"handle"         json:"handle"`
	Name       string       `yaml:"name,omitempty" json:"name,omitempty"`
	Role       string       `yaml:"role"           json:"role"`
	ChildCount int          `yaml:"children"       json:"children"`
	Pid        uint32       `yaml:"pid,omitempty"  json:"pid,omitempty"`
}

// Applications lists the application roots registered with the a11y
// registry. Applications whose attribute fetch fails are logged and
// skipped; one broken application must not hide the rest.
func (b *Bus) Applications(ctx context.Context) ([]App, error) {
	roots, err := b.Children(ctx, b.Registry())
	if err != nil {
		return nil, err
	}

	apps := make([]App, 0, len(roots))
	for _, h := range roots {
		attrs, err := b.Attributes(ctx, h)
		if err != nil {
			logrus.Warnf("skipping application %s: %v", h, err)
			continue
		}
		pid, err := b.Pid(ctx, h)
		if err != nil {
			logrus.Debugf("no pid for %s: %v", h, err)
		}
		apps = append(apps, App{
			Handle:     h,
			Name:       attrs.Name,
			Role:       attrs.Role,
			ChildCount: attrs.ChildCount,
			Pid:        pid,
		})
	}
	return apps, nil
}
