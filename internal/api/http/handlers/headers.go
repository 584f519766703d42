package handlers

import "github.com/gofiber/fiber/v2"

// AlertEntity names this service in alert and failure headers.
const AlertEntity = "userManagement"

// Alerts writes the X-<app>-alert, X-<app>-params and X-<app>-error headers
// that clients surface as notifications.
type Alerts struct {
	prefix string
}

// NewAlerts builds the header writer for the given application name.
func NewAlerts(appName string) Alerts {
	return Alerts{prefix: "X-" + appName}
}

// AlertHeader returns the success alert header name.
func (a Alerts) AlertHeader() string { return a.prefix + "-alert" }

// ErrorHeader returns the failure header name.
func (a Alerts) ErrorHeader() string { return a.prefix + "-error" }

// ParamsHeader returns the parameter header name.
func (a Alerts) ParamsHeader() string { return a.prefix + "-params" }

// Alert marks a successful operation, e.g. "userManagement.created" for "alice".
func (a Alerts) Alert(c *fiber.Ctx, key, param string) {
	c.Set(a.AlertHeader(), key)
	c.Set(a.ParamsHeader(), param)
}

// Failure marks a rejected operation with its machine code.
func (a Alerts) Failure(c *fiber.Ctx, code string) {
	c.Set(a.ErrorHeader(), "error."+code)
	c.Set(a.ParamsHeader(), AlertEntity)
}
