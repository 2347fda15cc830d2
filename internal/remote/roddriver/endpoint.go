package roddriver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

type versionResponse struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// resolveControlURL turns the address of a remote browser into the websocket
// url of its devtools endpoint. Websocket urls are used as given, http ones
// are resolved through /json/version.
//
// Browsers behind a proxy or in a container answer with their own listen
// address, so the host of the answer is replaced with the one that was asked.
func resolveControlURL(ctx context.Context, client *resty.Client, controlURL string) (string, error) {
	ctx, span := tracer.Start(ctx, "resolveControlURL")
	defer span.End()

	if strings.HasPrefix(controlURL, "ws://") || strings.HasPrefix(controlURL, "wss://") {
		return controlURL, nil
	}

	base, err := url.Parse(controlURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid control url")
		return "", err
	}

	var version versionResponse
	res, err := client.R().
		SetContext(ctx).
		SetResult(&version).
		Get(strings.TrimSuffix(controlURL, "/") + "/json/version")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query devtools version")
		return "", err
	}
	if res.IsError() {
		err = fmt.Errorf("devtools version endpoint answered %s", res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if version.WebSocketDebuggerURL == "" {
		err = fmt.Errorf("devtools version endpoint did not return a websocket url")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	ws, err := url.Parse(version.WebSocketDebuggerURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid websocket url")
		return "", err
	}
	ws.Host = base.Host
	if base.Scheme == "https" {
		ws.Scheme = "wss"
	}
	return ws.String(), nil
}
