// Package geo enriches security events with the client's country code.
package geo

import (
	"net"

	"gatewatch/logger"

	"github.com/oschwald/geoip2-golang"
)

// Resolver wraps a MaxMind country database. A Resolver built without a
// database resolves every IP to the empty string, so callers never branch
// on availability.
type Resolver struct {
	db *geoip2.Reader
}

func NewResolver(dbPath string) *Resolver {
	if dbPath == "" {
		return &Resolver{}
	}
	db, err := geoip2.Open(dbPath)
	if err != nil {
		logger.Warn("GeoIP enrichment disabled: database not found", "path", dbPath,
			"tip", "Download GeoLite2-Country.mmdb from MaxMind to enable country tagging")
		return &Resolver{}
	}
	return &Resolver{db: db}
}

// Country returns the ISO country code for ip, or "" when unknown.
func (r *Resolver) Country(ipStr string) string {
	if r.db == nil {
		return ""
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}
	rec, err := r.db.Country(ip)
	if err != nil {
		return ""
	}
	return rec.Country.IsoCode
}

// Close releases the database handle.
func (r *Resolver) Close() {
	if r.db != nil {
		r.db.Close()
	}
}
