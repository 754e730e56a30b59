// Package server exposes the visualizations, their datasets and the contact
// endpoint over HTTP.
//
// Pages are rendered from embedded html/template files. The embed variant of
// a page is selected with ?embed=true and changes the template branch and the
// scene options; nothing is hidden after the fact. Live playback uses one
// WebSocket per viewer: each connection mounts a fresh view, so the loop
// clock starts at zero for every viewer and closing the socket unmounts it.
package server
