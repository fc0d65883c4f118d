// Package httpapi provides HTTP handlers and middleware for the reservation API.
//
// The router exposes the following endpoints:
//   - GET /auth/login: redirects the browser to the identity provider with an
//     anti-forgery state cookie.
//   - GET /auth/callback: completes the OAuth exchange, provisions the account,
//     and issues a session token surfaced via the response body, the
//     `X-Session-Token` header, and a `session_token` cookie.
//   - POST /auth/logout: revokes the current session and clears the cookie.
//   - GET /auth/me: reports the authenticated principal.
//   - GET /reservations?start=&end=: lists confirmed reservations intersecting
//     the window, joined with room and owner display attributes.
//   - GET /reservations/mine: lists the caller's upcoming and in-progress
//     reservations, including ones they are only invited to.
//   - POST /reservations, PUT /reservations/{id}, DELETE /reservations/{id}:
//     booking workflow endpoints exchanging the `reservationDTO` payload
//     defined in reservation_handler.go. Overlaps answer 409 with the
//     conflicting reservations listed.
//   - GET /rooms, POST /rooms, PUT /rooms/{id}, DELETE /rooms/{id}: room
//     catalog endpoints. Listing is available to any authenticated principal
//     while mutations require admin privileges; DELETE deactivates rather
//     than removes.
//   - GET /equipment, POST /equipment, PUT /equipment/{id},
//     DELETE /equipment/{id}: equipment catalog endpoints with the same
//     access rules as rooms.
//   - GET /events: upgrades to a websocket fed by the change notification hub.
//
// Request/response DTOs live alongside their respective handlers. All
// endpoints except /auth/login and /auth/callback sit behind the
// RequireSession middleware wired in the server entrypoint.
package httpapi
