package shl

import (
	"github.com/shl-go/shl/protocol"
)

// dispatch routes one inbound envelope into the catalogue. A panic
// while projecting a single payload is logged and swallowed so one
// malformed frame cannot take the session down.
func (b *Bridge) dispatch(env protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			logError(b.log, "panic while dispatching frame",
				"type", env.Type.String(), "panic", r)
		}
	}()

	switch env.Type {
	case protocol.MsgSetDeviceState:
		b.applyDeviceState(env.Payload)
	case protocol.MsgSetStateInfo:
		b.applyStateInfo(env.Payload)
	case protocol.MsgSetAllData:
		b.applyAllData(env.Payload)
	default:
		logDebug(b.log, "unhandled message", "type", env.Type.String())
	}
}

// applyDeviceState projects a single-device update. Updates for ids
// the catalogue does not know are swallowed.
func (b *Bridge) applyDeviceState(payload map[string]any) {
	id, ok := protocol.Int(payload, "deviceId")
	if !ok {
		logDebug(b.log, "device state without deviceId")
		return
	}
	b.mu.RLock()
	device, known := b.devices[id]
	b.mu.RUnlock()
	if !known {
		logDebug(b.log, "state for unknown device", "device_id", id)
		return
	}
	device.applyState(payload)
}

// applyStateInfo fans a mixed item list out to devices, rooms, and
// components, classified by whichever id field each item carries.
func (b *Bridge) applyStateInfo(payload map[string]any) {
	for _, item := range protocol.Objects(payload, "item") {
		switch {
		case hasField(item, "deviceId"):
			b.applyDeviceState(item)
		case hasField(item, "roomId"):
			b.applyRoomState(item)
		case hasField(item, "compId"):
			b.applyCompState(item)
		default:
			logDebug(b.log, "state info item without entity id")
		}
	}
}

func (b *Bridge) applyRoomState(payload map[string]any) {
	id, _ := protocol.Int(payload, "roomId")
	b.mu.RLock()
	room, known := b.rooms[id]
	b.mu.RUnlock()
	if !known {
		logDebug(b.log, "state for unknown room", "room_id", id)
		return
	}
	room.applyState(payload)
}

func (b *Bridge) applyCompState(payload map[string]any) {
	id, _ := protocol.Int(payload, "compId")
	b.mu.RLock()
	comp, known := b.comps[id]
	b.mu.RUnlock()
	if !known {
		logDebug(b.log, "state for unknown component", "comp_id", id)
		return
	}
	comp.applyState(payload)
}

// applyAllData ingests a bulk inventory frame: every listed device,
// component, and room is upserted and projected. The lastItem marker
// completes initialization.
func (b *Bridge) applyAllData(payload map[string]any) {
	for _, entry := range protocol.Objects(payload, "devices") {
		b.upsertDevice(entry)
	}
	for _, entry := range protocol.Objects(payload, "comps") {
		b.upsertComp(entry)
	}
	for _, entry := range protocol.Objects(payload, "rooms") {
		b.upsertRoom(entry)
	}
	for _, entry := range protocol.Objects(payload, "roomHeating") {
		b.upsertRoom(entry)
	}

	if _, ok := payload["lastItem"]; ok {
		b.mu.Lock()
		if b.state == StateInitializing {
			b.state = StateReady
			logInfo(b.log, "catalogue complete",
				"devices", len(b.devices), "rooms", len(b.rooms), "comps", len(b.comps))
		}
		b.mu.Unlock()
	}
}

// upsertDevice inserts a device on first sight and projects the
// payload either way. Existing entities are updated in place so
// subscribers keep their streams across reconnects.
func (b *Bridge) upsertDevice(payload map[string]any) {
	id, ok := protocol.Int(payload, "deviceId")
	if !ok {
		logDebug(b.log, "device entry without deviceId")
		return
	}

	b.mu.Lock()
	device, known := b.devices[id]
	if !known {
		device = newDevice(payload, b, b.log)
		b.devices[id] = device
	}
	b.mu.Unlock()

	device.applyState(payload)
}

func (b *Bridge) upsertComp(payload map[string]any) {
	id, ok := protocol.Int(payload, "compId")
	if !ok {
		logDebug(b.log, "component entry without compId")
		return
	}

	b.mu.Lock()
	comp, known := b.comps[id]
	if !known {
		comp = newComponent(payload)
		b.comps[id] = comp
	}
	b.mu.Unlock()

	comp.applyState(payload)
}

func (b *Bridge) upsertRoom(payload map[string]any) {
	id, ok := protocol.Int(payload, "roomId")
	if !ok {
		logDebug(b.log, "room entry without roomId")
		return
	}

	b.mu.Lock()
	room, known := b.rooms[id]
	if !known {
		room = newRoom(payload, b, b.log)
		b.rooms[id] = room
	}
	b.mu.Unlock()

	room.applyState(payload)
}

func hasField(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}
