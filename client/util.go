package client

import (
	"time"

	"cascadenet/netplay"
)

func tickPeriodFromConf(sc *netplay.ServerConfMsg) time.Duration {
	return time.Duration(sc.TickMicroseconds) * time.Microsecond
}
