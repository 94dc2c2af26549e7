// Package bus implements the in-process publish/subscribe channel carrying
// session state transitions (chunk transcribed, notes updated, recording
// status) to listeners such as the WebSocket live view. Delivery is
// best-effort with bounded per-subscriber buffers; publishers never block.
package bus
