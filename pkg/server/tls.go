package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/telemetry/logging"
)

// certExpiryWarning is how close to expiry a certificate is logged as a
// warning.
const certExpiryWarning = 30 * 24 * time.Hour

// certReloader serves the certificate pair at certFile and keyFile,
// reloading it when either file's modification time changes.
type certReloader struct {
	certFile string
	keyFile  string
	interval time.Duration
	logger   logging.LevelLogger
	now      func() time.Time

	mu       sync.RWMutex
	cert     *tls.Certificate
	certTime time.Time
	keyTime  time.Time
}

func newCertReloader(certFile, keyFile string, interval time.Duration, logger logging.LevelLogger) *certReloader {
	return &certReloader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: interval,
		logger:   logging.OrNop(logger),
		now:      time.Now,
	}
}

// start loads the initial certificate and polls for changes until ctx is
// done. A zero interval disables polling.
func (r *certReloader) start(ctx context.Context) error {
	if err := r.reload(); err != nil {
		return err
	}
	r.logCertificate("certificate loaded")

	if r.interval > 0 {
		go r.reloadLoop(ctx)
	}
	return nil
}

func (r *certReloader) reloadLoop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !r.needsReload() {
				continue
			}
			if err := r.reload(); err != nil {
				r.logger.Error("failed to reload certificate",
					"error", err,
					"cert_file", r.certFile,
					"key_file", r.keyFile,
				)
				continue
			}
			r.logCertificate("certificate reloaded")

		case <-ctx.Done():
			return
		}
	}
}

// needsReload reports whether either file changed since the last load.
func (r *certReloader) needsReload() bool {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return !certInfo.ModTime().Equal(r.certTime) || !keyInfo.ModTime().Equal(r.keyTime)
}

func (r *certReloader) reload() error {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return fmt.Errorf("certificate file: %w", err)
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return fmt.Errorf("key file: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	if err := r.validate(&cert); err != nil {
		return fmt.Errorf("certificate validation failed: %w", err)
	}

	r.mu.Lock()
	r.cert = &cert
	r.certTime = certInfo.ModTime()
	r.keyTime = keyInfo.ModTime()
	r.mu.Unlock()
	return nil
}

// validate rejects empty or expired certificates and caches the parsed
// leaf.
func (r *certReloader) validate(cert *tls.Certificate) error {
	if len(cert.Certificate) == 0 {
		return errors.New("certificate chain is empty")
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}
	now := r.now()
	if now.Before(leaf.NotBefore) {
		return fmt.Errorf("certificate not valid until %s", leaf.NotBefore.Format(time.RFC3339))
	}
	if now.After(leaf.NotAfter) {
		return fmt.Errorf("certificate expired at %s", leaf.NotAfter.Format(time.RFC3339))
	}
	cert.Leaf = leaf
	return nil
}

func (r *certReloader) certificate() *tls.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert
}

// getCertificate is installed as tls.Config.GetCertificate.
func (r *certReloader) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cert := r.certificate()
	if cert == nil {
		return nil, errors.New("no certificate loaded")
	}
	return cert, nil
}

func (r *certReloader) logCertificate(msg string) {
	cert := r.certificate()
	if cert == nil || cert.Leaf == nil {
		return
	}
	leaf := cert.Leaf
	remaining := leaf.NotAfter.Sub(r.now())
	args := []any{
		"subject", leaf.Subject.CommonName,
		"issuer", leaf.Issuer.CommonName,
		"expires_in_days", int(remaining.Hours() / 24),
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	}
	if remaining < certExpiryWarning {
		r.logger.Warn("certificate expiring soon", args...)
		return
	}
	r.logger.Info(msg, args...)
}

// tlsMinVersion maps "1.2" and "1.3" to crypto/tls constants. Older
// versions are rejected by config validation.
func tlsMinVersion(v string) uint16 {
	if v == "1.2" {
		return tls.VersionTLS12
	}
	return tls.VersionTLS13
}

// newTLSConfig builds the server TLS configuration around reloader.
func newTLSConfig(cfg config.TLSConfig, reloader *certReloader) *tls.Config {
	return &tls.Config{
		MinVersion:     tlsMinVersion(cfg.MinVersion),
		GetCertificate: reloader.getCertificate,
	}
}
