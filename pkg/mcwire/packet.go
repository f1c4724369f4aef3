package mcwire

// Clientbound packet ids for protocol 754 (1.16.4). Only the subset the client
// core decodes is listed; everything else is skipped by the dispatcher.
const (
	IDLoginSuccess    uint64 = 0x02 // login state
	IDSetCompression  uint64 = 0x03 // login state
	IDBlockChange     uint64 = 0x0B
	IDChatMessage     uint64 = 0x0E
	IDUnloadChunk     uint64 = 0x1C
	IDKeepAlive       uint64 = 0x1F
	IDChunkData       uint64 = 0x20
	IDPositionAndLook uint64 = 0x34
	IDMultiBlockChange uint64 = 0x3B
)

// Serverbound packet ids.
const (
	IDServerHandshake       uint64 = 0x00
	IDServerLoginStart      uint64 = 0x00
	IDServerTeleportConfirm uint64 = 0x00
	IDServerKeepAlive       uint64 = 0x10
)

// PacketName returns a human-readable name for known clientbound packet ids.
func PacketName(id uint64) string {
	switch id {
	case IDLoginSuccess:
		return "LoginSuccess"
	case IDSetCompression:
		return "SetCompression"
	case IDBlockChange:
		return "BlockChange"
	case IDChatMessage:
		return "ChatMessage"
	case IDUnloadChunk:
		return "UnloadChunk"
	case IDKeepAlive:
		return "KeepAlive"
	case IDChunkData:
		return "ChunkData"
	case IDPositionAndLook:
		return "PlayerPositionAndLook"
	case IDMultiBlockChange:
		return "MultiBlockChange"
	default:
		return ""
	}
}
