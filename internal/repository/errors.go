package repository

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrSlotTaken            = errors.New("time slot already booked")
	ErrDuplicateBooking     = errors.New("duplicate active booking")
	ErrEmailTaken           = errors.New("email already registered")
)
