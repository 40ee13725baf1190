package types

// Wheel websocket protocol (GET /ws?room={roomId}).
//
// Client -> Server
// Sync: {}            re-read the room from the Room Service
// Draw: {}            ask the Room Service for a winner and spin to it
// Reset: {}           reset the draw and the wheel
//
// Server -> Client
// WheelSnapshot:
//   version: number
//   geometry:
//     radius: number
//     rotation_deg: number     // visible angle when the snapshot was taken
//     transform: string        // "rotate(deg cx cy)"
//     phase: "idle" | "spinning" | "settled"
//     status: string
//     selected_id: string      // only once settled
//     pointer: { x, y, angle_deg }
//     slices: [{ index, id, label, start_deg, end_deg, mid_deg, path, color,
//                label_x, label_y, label_rotation, selected }]
//   spin:                      // present while spinning
//     from_deg: number
//     target_deg: number
//     duration_ms: number
//
// WinnerAnnounced:
//   winner: { id, label }
//
// Error:
//   error: string            // user facing
