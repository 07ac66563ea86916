package events

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"product-catalog/pkg/logattr"

	"github.com/walletera/eventskit/events"
)

type Deserializer struct {
	logger *slog.Logger
}

var _ events.Deserializer[Handler] = (*Deserializer)(nil)

func NewDeserializer(logger *slog.Logger) *Deserializer {
	return &Deserializer{logger: logger}
}

func (d *Deserializer) Deserialize(rawEvent []byte) (events.Event[Handler], error) {
	var envelope events.EventEnvelope
	err := json.Unmarshal(rawEvent, &envelope)
	if err != nil {
		return nil, fmt.Errorf("failed deserializing event envelope: %w", err)
	}

	d.logger.Debug("event received", logattr.EventType(envelope.Type))

	switch envelope.Type {
	case TypeProductAdded:
		var data ProductAddedData
		err := json.Unmarshal(envelope.Data, &data)
		if err != nil {
			return nil, fmt.Errorf("failed deserializing %s event data: %w", envelope.Type, err)
		}
		return ProductAdded{eventMeta: metaFromEnvelope(envelope), Data: data}, nil
	case TypeProductSaleable:
		var data ProductSaleableData
		err := json.Unmarshal(envelope.Data, &data)
		if err != nil {
			return nil, fmt.Errorf("failed deserializing %s event data: %w", envelope.Type, err)
		}
		return ProductSaleable{eventMeta: metaFromEnvelope(envelope), Data: data}, nil
	case TypeProductUnsaleable:
		var data ProductUnsaleableData
		err := json.Unmarshal(envelope.Data, &data)
		if err != nil {
			return nil, fmt.Errorf("failed deserializing %s event data: %w", envelope.Type, err)
		}
		return ProductUnsaleable{eventMeta: metaFromEnvelope(envelope), Data: data}, nil
	default:
		d.logger.Warn("unknown event type", logattr.EventType(envelope.Type))
		return nil, fmt.Errorf("unknown event type: %s", envelope.Type)
	}
}
