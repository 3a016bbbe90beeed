// File: utils/constants.go
package utils

// BookingEventsChannel is the Redis pub/sub channel carrying booking
// state-change events.
const BookingEventsChannel = "booking:events"
