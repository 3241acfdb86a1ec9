package service

import "github.com/labstack/gommon/log"

// One logger per component; the prefix shows up in every line.
var (
	ledgerLog  = log.New("ledger")
	bookingLog = log.New("booking")
	tripLog    = log.New("trip")
	pricingLog = log.New("pricing")
	reaperLog  = log.New("reaper")
)

// SetLogLevel applies level to every service logger.
func SetLogLevel(level log.Lvl) {
	for _, l := range []*log.Logger{ledgerLog, bookingLog, tripLog, pricingLog, reaperLog} {
		l.SetLevel(level)
	}
}
