package atspi

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/mj1618/a11y-tree/internal/model"
	"github.com/sirupsen/logrus"
)

const (
	// The registry daemon publishes the desktop root here; its children
	// are the accessible roots of every running application.
	registrySender = "org.a11y.atspi.Registry"
	registryPath   = "/org/a11y/atspi/accessible/root"

	accessibleIface = "org.a11y.atspi.Accessible"
	propsIface      = "org.freedesktop.DBus.Properties"

	// The a11y bus runs separately from the session bus; its address is
	// published by this service on the session bus.
	busService = "org.a11y.Bus"
	busPath    = "/org/a11y/bus"

	// nullPath is the null object reference some applications use to pad
	// child lists; it is never a real child.
	nullPath = "/org/a11y/atspi/null"
)

// MaxMessageSize is the bus daemon's hard per-message ceiling. A reply
// that would exceed it can never be received, so child materialization
// must be bounded before the call is issued.
const MaxMessageSize = 128 * 1024 * 1024

// Bus is the Client implementation backed by a live a11y bus connection.
type Bus struct {
	conn *dbus.Conn
}

// Connect discovers the a11y bus through the session bus and connects
// to it. The caller owns the connection and must Close it.
func Connect(ctx context.Context) (*Bus, error) {
	session, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	var addr string
	obj := session.Object(busService, busPath)
	if err := obj.CallWithContext(ctx, busService+".GetAddress", 0).Store(&addr); err != nil {
		return nil, fmt.Errorf("resolve a11y bus address: %w", err)
	}

	conn, err := dbus.Connect(addr)
	if err != nil {
		return nil, fmt.Errorf("connect a11y bus: %w", err)
	}
	logrus.Debugf("connected to a11y bus at %s", addr)
	return &Bus{conn: conn}, nil
}

// Close releases the a11y bus connection.
func (b *Bus) Close() error {
	return b.conn.Close()
}

// Registry returns the handle of the desktop root published by the
// registry daemon.
func (b *Bus) Registry() model.Handle {
	return model.Handle{Sender: registrySender, Path: registryPath}
}

// Pid resolves the unix process id behind a sender name by asking the
// bus daemon. Applications do not publish their own pid, so this is the
// only reliable route.
func (b *Bus) Pid(ctx context.Context, h model.Handle) (uint32, error) {
	var pid uint32
	err := b.conn.BusObject().CallWithContext(ctx,
		"org.freedesktop.DBus.GetConnectionUnixProcessID", 0, h.Sender).Store(&pid)
	if err != nil {
		return 0, remoteErr(h, "pid", err)
	}
	return pid, nil
}

func (b *Bus) object(h model.Handle) dbus.BusObject {
	return b.conn.Object(h.Sender, dbus.ObjectPath(h.Path))
}

func (b *Bus) property(ctx context.Context, obj dbus.BusObject, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := obj.CallWithContext(ctx, propsIface+".Get", 0, accessibleIface, name).Store(&v)
	return v, err
}

// Attributes fetches role, name, description, child count, and the
// implemented interfaces of one remote object.
func (b *Bus) Attributes(ctx context.Context, h model.Handle) (model.Attributes, error) {
	obj := b.object(h)

	var role uint32
	if err := obj.CallWithContext(ctx, accessibleIface+".GetRole", 0).Store(&role); err != nil {
		return model.Attributes{}, remoteErr(h, "attributes", err)
	}

	nameVar, err := b.property(ctx, obj, "Name")
	if err != nil {
		return model.Attributes{}, remoteErr(h, "attributes", err)
	}
	name, _ := nameVar.Value().(string)

	descVar, err := b.property(ctx, obj, "Description")
	if err != nil {
		return model.Attributes{}, remoteErr(h, "attributes", err)
	}
	desc, _ := descVar.Value().(string)

	countVar, err := b.property(ctx, obj, "ChildCount")
	if err != nil {
		return model.Attributes{}, remoteErr(h, "attributes", err)
	}
	count, _ := countVar.Value().(int32)

	var interfaces []string
	if err := obj.CallWithContext(ctx, accessibleIface+".GetInterfaces", 0).Store(&interfaces); err != nil {
		return model.Attributes{}, remoteErr(h, "attributes", err)
	}

	return model.Attributes{
		Role:        RoleName(role),
		Name:        name,
		Description: desc,
		ChildCount:  int(count),
		Interfaces:  interfaces,
	}, nil
}

// objectRef is the wire form of a remote object reference: the owning
// application's bus name plus the object path.
type objectRef struct {
	Name string
	Path dbus.ObjectPath
}

func (r objectRef) handle() model.Handle {
	return model.Handle{Sender: r.Name, Path: string(r.Path)}
}

// Children fetches the ordered child references of one remote object.
func (b *Bus) Children(ctx context.Context, h model.Handle) ([]model.Handle, error) {
	var refs []objectRef
	if err := b.object(h).CallWithContext(ctx, accessibleIface+".GetChildren", 0).Store(&refs); err != nil {
		return nil, remoteErr(h, "children", err)
	}

	out := make([]model.Handle, 0, len(refs))
	for _, r := range refs {
		if r.Path == nullPath {
			continue
		}
		out = append(out, r.handle())
	}
	return out, nil
}

// ChildAt fetches a single child reference by index without pulling the
// whole child list. Used for reply-size estimation on objects reporting
// pathological child counts.
func (b *Bus) ChildAt(ctx context.Context, h model.Handle, index int) (model.Handle, error) {
	var ref objectRef
	err := b.object(h).CallWithContext(ctx, accessibleIface+".GetChildAtIndex", 0, int32(index)).Store(&ref)
	if err != nil {
		return model.Handle{}, remoteErr(h, "children", err)
	}
	return ref.handle(), nil
}
