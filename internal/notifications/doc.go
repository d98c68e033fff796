// Package notifications delivers push notifications about trap activity via
// ntfy. With no topic configured the service degrades to a silent noop.
package notifications
