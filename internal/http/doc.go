// Package http provides the HTTP handlers and middleware for the reservation API.
//
// The router exposes the following endpoints, each also served under /api:
//   - GET /reservations: every reservation as
//     [{"id","userId","startTime","endTime","type","username"}], type 0 = Training, 1 = Event.
//   - POST /reservations: body {"userId","startTime","endTime","type"}. Returns 201 with the
//     created reservation and a Location header, or 400 with
//     {"error_code","message","errors","conflicts"} when a booking rule refuses it.
//   - GET /reservations/{id}, DELETE /reservations/{id}: 404 when the id is unknown;
//     DELETE answers 204 on success.
//   - GET /reservations/availability?startTime=&endTime=: {"available","conflicts"}.
//   - GET /reservations.ics: the reservations as an iCalendar feed.
//   - POST /user/login/admin, POST /user/login/faculty: body {"username","password"}.
//     200 {"message","token","expiresAt","user"} or 401 {"message"}.
//   - GET /user: [{"id","username","role"}] with role "Admin" or "Faculty".
//   - GET /healthz: storage liveness.
//
// A bearer token, when present, is verified on every request. With
// RouterConfig.AuthRequired, POST and DELETE on /reservations require one.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
