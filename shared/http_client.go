package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// maxResponseBytes caps how much of an upstream body is read
const maxResponseBytes = 8 << 20

// HTTPClientFactory creates pooled HTTP clients, one per distinct timeout
type HTTPClientFactory struct {
	defaultTimeout time.Duration
	mutex          sync.RWMutex
	clients        map[string]*http.Client
}

// NewHTTPClientFactory creates a new HTTP client factory
func NewHTTPClientFactory(defaultTimeout time.Duration) *HTTPClientFactory {
	return &HTTPClientFactory{
		defaultTimeout: defaultTimeout,
		clients:        make(map[string]*http.Client),
	}
}

// Client returns the cached client for timeout, creating it on first use.
// A non-positive timeout selects the factory default.
func (f *HTTPClientFactory) Client(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	clientKey := fmt.Sprintf("timeout_%d", timeout.Milliseconds())

	f.mutex.RLock()
	if client, exists := f.clients[clientKey]; exists {
		f.mutex.RUnlock()
		return client
	}
	f.mutex.RUnlock()

	f.mutex.Lock()
	defer f.mutex.Unlock()
	if client, exists := f.clients[clientKey]; exists {
		return client
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	f.clients[clientKey] = client

	logrus.WithFields(logrus.Fields{
		"component":  "HTTPClientFactory",
		"timeout":    timeout,
		"client_key": clientKey,
	}).Debug("Created new pooled HTTP client")

	return client
}

// CloseIdleConnections releases idle connections of every cached client
func (f *HTTPClientFactory) CloseIdleConnections() {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for key, client := range f.clients {
		client.CloseIdleConnections()
		delete(f.clients, key)
	}

	logrus.WithField("component", "HTTPClientFactory").Debug("Closed idle connections of cached HTTP clients")
}

// SetJSONAPIHeaders sets the headers an API-key authenticated JSON API expects
func SetJSONAPIHeaders(request *http.Request, apiKeyHeader, apiKey string) {
	request.Header.Set("Accept", "application/json")
	if apiKey != "" {
		request.Header.Set(apiKeyHeader, apiKey)
	}
}

// ExecuteJSONRequest performs exactly one attempt of request and decodes a 2xx
// JSON body into target. Every failure is returned as a *ServiceError.
func ExecuteJSONRequest(client *http.Client, request *http.Request, target interface{}, serviceName, operation string, metrics *HTTPMetrics) error {
	logger := logrus.WithFields(logrus.Fields{
		"component": serviceName,
		"operation": operation,
		"url":       request.URL.Redacted(),
	})

	response, err := client.Do(request)
	if err != nil {
		timeout := isTimeout(err)
		category := ErrorCategoryNetwork
		code := "TRANSPORT_ERROR"
		if timeout {
			category = ErrorCategoryTimeout
			code = "TIMEOUT"
		}
		metrics.RecordHTTPRequest(false, 0, code, timeout)
		logger.WithError(err).Debug("HTTP request failed with transport error")
		return NewServiceError(category, code, "upstream request failed", serviceName, operation, true, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxResponseBytes))
		metrics.RecordHTTPRequest(false, response.StatusCode, "HTTP_STATUS", false)
		logger.WithField("status_code", response.StatusCode).Debug("HTTP request failed with non-2xx status")
		retryable := response.StatusCode == http.StatusTooManyRequests || response.StatusCode >= 500
		return NewServiceError(
			ErrorCategoryNetwork,
			"HTTP_STATUS",
			fmt.Sprintf("upstream returned HTTP %d: %s", response.StatusCode, http.StatusText(response.StatusCode)),
			serviceName, operation, retryable, nil,
		).WithDetails(map[string]int{"status_code": response.StatusCode})
	}

	if err := json.NewDecoder(io.LimitReader(response.Body, maxResponseBytes)).Decode(target); err != nil {
		metrics.RecordHTTPRequest(false, response.StatusCode, "MALFORMED_PAYLOAD", false)
		return NewServiceError(ErrorCategoryValidation, "MALFORMED_PAYLOAD", "upstream payload could not be decoded", serviceName, operation, false, err)
	}

	metrics.RecordHTTPRequest(true, response.StatusCode, "", false)
	logger.WithField("status_code", response.StatusCode).Debug("HTTP request successful")
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
