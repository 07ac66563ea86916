package logattr

import "log/slog"

func ServiceName(serviceName string) slog.Attr {
	return slog.String("service_name", serviceName)
}

func Component(component string) slog.Attr {
	return slog.String("component", component)
}

func ProductId(productId string) slog.Attr {
	return slog.String("product_id", productId)
}

func ProductName(productName string) slog.Attr {
	return slog.String("product_name", productName)
}

func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

func Error(err string) slog.Attr {
	return slog.String("error", err)
}

func CorrelationId(correlationId string) slog.Attr {
	return slog.String("correlation_id", correlationId)
}

func StreamName(streamName string) slog.Attr {
	return slog.String("stream_name", streamName)
}

func ReplayState(state string) slog.Attr {
	return slog.String("replay_state", state)
}
