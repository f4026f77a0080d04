// Package scheduling implements availability-aware time negotiation for meetings.
//
// Every function here is pure: it reads and mutates an in-memory
// model.Meeting and never performs I/O. Persistence, concurrency control and
// side effects (notifications, calendar sync) belong to the service layer.
//
// All instants are normalized with NormalizeInstant before they are matched,
// appended to the proposal ledger or used as approval keys, so two requests
// that differ only in sub-second precision address the same time.
package scheduling
