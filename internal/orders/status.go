package orders

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusNew        Status = "NEW"
	StatusProcessing Status = "PROCESSING"
	StatusPackaged   Status = "PACKAGED"
	StatusPicked     Status = "PICKED"
	StatusShipping   Status = "SHIPPING"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

// Any status may follow any other; staff can move an order anywhere.
var known = map[Status]bool{
	StatusNew:        true,
	StatusProcessing: true,
	StatusPackaged:   true,
	StatusPicked:     true,
	StatusShipping:   true,
	StatusDelivered:  true,
	StatusCancelled:  true,
	StatusRefunded:   true,
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !known[st] {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "COD"
	PaymentGateway PaymentMethod = "GATEWAY"
)
