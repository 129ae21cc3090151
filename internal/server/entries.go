package server

import (
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/diskcache/internal/logging"
)

type entryHandler struct {
	store  EntryStore
	logger *logrus.Logger
}

func (h *entryHandler) get(c fiber.Ctx) error {
	key := c.Params("key")
	lookup := <-h.store.Get(key)
	if !lookup.Found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "entry_not_found"})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(lookup.Value)
}

func (h *entryHandler) put(c fiber.Ctx) error {
	key := c.Params("key")
	body := c.Body()
	if !json.Valid(body) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_json"})
	}

	// Fiber reuses the request buffer; the cache keeps its own copy.
	value := make(json.RawMessage, len(body))
	copy(value, body)

	<-h.store.Set(key, value)
	h.logMutation(c, "set", key)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *entryHandler) remove(c fiber.Ctx) error {
	key := c.Params("key")
	<-h.store.Remove(key)
	h.logMutation(c, "remove", key)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *entryHandler) removeAll(c fiber.Ctx) error {
	<-h.store.RemoveAll()
	h.logMutation(c, "remove_all", "")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *entryHandler) logMutation(c fiber.Ctx, op, key string) {
	fields := logging.EntryFields(op, key)
	fields["request_id"] = RequestID(c)
	h.logger.WithFields(fields).Info("entry mutated")
}
