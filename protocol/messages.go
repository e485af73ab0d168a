package protocol

import "strconv"

// MessageType is the numeric message kind carried in the type_int field
// of every frame exchanged with the bridge.
type MessageType int

// Connection and acknowledgement messages.
const (
	MsgAck          MessageType = 1
	MsgLoginRequest MessageType = 2
	MsgNack         MessageType = 3
	MsgPing         MessageType = 4
	MsgPong         MessageType = 5

	MsgConnectionStart    MessageType = 10
	MsgConnectionHello    MessageType = 11
	MsgConnectionAccepted MessageType = 12
	MsgConnectionDeclined MessageType = 13
	MsgSecureInit         MessageType = 14
	MsgSecurePublicKey    MessageType = 15
	MsgSecureKey          MessageType = 16
	MsgSecureReady        MessageType = 17
	MsgSecureDeclined     MessageType = 18
	MsgConnectionClosed   MessageType = 19
)

// Login, token and user management messages.
const (
	MsgLoginSubmit      MessageType = 30
	MsgLoginDeclined    MessageType = 31
	MsgLoginAccept      MessageType = 32
	MsgTokenValidate    MessageType = 33
	MsgTokenInvalid     MessageType = 34
	MsgTokenAccepted    MessageType = 35
	MsgTokenExpired     MessageType = 36
	MsgTokenRenew       MessageType = 37
	MsgTokenRenewed     MessageType = 38
	MsgLogoutRequest    MessageType = 39
	MsgLogoutConfirm    MessageType = 40
	MsgUserListRequest  MessageType = 41
	MsgUserList         MessageType = 42
	MsgUserAdd          MessageType = 43
	MsgUserAdded        MessageType = 44
	MsgUserRemove       MessageType = 45
	MsgUserRemoved      MessageType = 46
	MsgPasswordChange   MessageType = 47
	MsgPasswordChanged  MessageType = 48
	MsgPermissionsQuery MessageType = 49
	MsgPermissions      MessageType = 50
)

// Device discovery and pairing messages.
const (
	MsgDeviceScanStart    MessageType = 60
	MsgDeviceScanStarted  MessageType = 61
	MsgDeviceScanStop     MessageType = 62
	MsgDeviceScanStopped  MessageType = 63
	MsgDeviceFound        MessageType = 64
	MsgDevicePair         MessageType = 65
	MsgDevicePaired       MessageType = 66
	MsgDeviceUnpair       MessageType = 67
	MsgDeviceUnpaired     MessageType = 68
	MsgDeviceRename       MessageType = 69
	MsgDeviceRenamed      MessageType = 70
	MsgDeviceRemove       MessageType = 71
	MsgDeviceRemoved      MessageType = 72
	MsgDeviceTeachIn      MessageType = 73
	MsgDeviceTeachInDone  MessageType = 74
	MsgDeviceTestSignal   MessageType = 75
	MsgDeviceSignalResult MessageType = 76
)

// Component and room management messages.
const (
	MsgCompCreate   MessageType = 80
	MsgCompCreated  MessageType = 81
	MsgCompUpdate   MessageType = 82
	MsgCompUpdated  MessageType = 83
	MsgCompRemove   MessageType = 84
	MsgCompRemoved  MessageType = 85
	MsgRoomCreate   MessageType = 86
	MsgRoomCreated  MessageType = 87
	MsgRoomUpdate   MessageType = 88
	MsgRoomUpdated  MessageType = 89
	MsgRoomRemove   MessageType = 90
	MsgRoomRemoved  MessageType = 91
	MsgRoomAssign   MessageType = 92
	MsgRoomAssigned MessageType = 93
)

// Scene and timer messages. The client library does not issue these but
// tolerates them on receive.
const (
	MsgSceneActivate   MessageType = 100
	MsgSceneActivated  MessageType = 101
	MsgSceneCreate     MessageType = 102
	MsgSceneCreated    MessageType = 103
	MsgSceneRemove     MessageType = 104
	MsgSceneRemoved    MessageType = 105
	MsgTimerProgram    MessageType = 110
	MsgTimerProgrammed MessageType = 111
	MsgTimerRemove     MessageType = 112
	MsgTimerRemoved    MessageType = 113
	MsgTimerFired      MessageType = 114
)

// Notification and diagnostics messages.
const (
	MsgNotification      MessageType = 120
	MsgNotificationAck   MessageType = 121
	MsgErrorReport       MessageType = 122
	MsgDiagnosticsQuery  MessageType = 123
	MsgDiagnostics       MessageType = 124
	MsgLogQuery          MessageType = 125
	MsgLogData           MessageType = 126
	MsgWeatherQuery      MessageType = 130
	MsgWeatherData       MessageType = 131
	MsgEnergyQuery       MessageType = 132
	MsgEnergyData        MessageType = 133
	MsgBatteryWarning    MessageType = 134
	MsgConnectivityAlert MessageType = 135
)

// Session and catalogue queries.
const (
	MsgQuerySessionState MessageType = 240
	MsgSessionState      MessageType = 241
	MsgQueryCatalogue    MessageType = 242
	MsgCatalogue         MessageType = 243
	MsgQueryDeviceState  MessageType = 244
	MsgQueryRoomState    MessageType = 245
	MsgQueryCompState    MessageType = 246
	MsgQueryFirmware     MessageType = 247
	MsgFirmwareInfo      MessageType = 248
	MsgQueryBackup       MessageType = 249
	MsgBackupData        MessageType = 250
	MsgRestoreBackup     MessageType = 251
	MsgBackupRestored    MessageType = 252
	MsgQuerySystemInfo   MessageType = 253
	MsgSystemInfo        MessageType = 254
)

// State distribution messages pushed by the bridge.
const (
	MsgSetAllData            MessageType = 800
	MsgSetDeviceState        MessageType = 801
	MsgSetCompState          MessageType = 802
	MsgSetRoomState          MessageType = 803
	MsgSetStateInfo          MessageType = 804
	MsgSetDeviceShadingState MessageType = 805
	MsgSetHeatingState       MessageType = 806
	MsgSetSceneState         MessageType = 807
	MsgSetTimerState         MessageType = 808
)

// Device action messages issued by clients.
const (
	MsgActionSwitchDevice MessageType = 810
	MsgActionSlideDevice  MessageType = 811
	MsgActionStopDevice   MessageType = 812
	MsgActionToggleDevice MessageType = 813
	MsgActionIdentify     MessageType = 814
)

// messageNames maps known codes to their symbolic names for logging.
var messageNames = map[MessageType]string{
	MsgAck:                   "ACK",
	MsgLoginRequest:          "LOGIN_REQUEST",
	MsgNack:                  "NACK",
	MsgPing:                  "PING",
	MsgPong:                  "PONG",
	MsgConnectionStart:       "CONNECTION_START",
	MsgConnectionHello:       "CONNECTION_HELLO",
	MsgConnectionAccepted:    "CONNECTION_ACCEPTED",
	MsgConnectionDeclined:    "CONNECTION_DECLINED",
	MsgSecureInit:            "SECURE_INIT",
	MsgSecurePublicKey:       "SECURE_PUBLIC_KEY",
	MsgSecureKey:             "SECURE_KEY",
	MsgSecureReady:           "SECURE_READY",
	MsgSecureDeclined:        "SECURE_DECLINED",
	MsgConnectionClosed:      "CONNECTION_CLOSED",
	MsgLoginSubmit:           "LOGIN_SUBMIT",
	MsgLoginDeclined:         "LOGIN_DECLINED",
	MsgLoginAccept:           "LOGIN_ACCEPT",
	MsgTokenValidate:         "TOKEN_VALIDATE",
	MsgTokenInvalid:          "TOKEN_INVALID",
	MsgTokenAccepted:         "TOKEN_ACCEPTED",
	MsgTokenExpired:          "TOKEN_EXPIRED",
	MsgTokenRenew:            "TOKEN_RENEW",
	MsgTokenRenewed:          "TOKEN_RENEWED",
	MsgLogoutRequest:         "LOGOUT_REQUEST",
	MsgLogoutConfirm:         "LOGOUT_CONFIRM",
	MsgUserListRequest:       "USER_LIST_REQUEST",
	MsgUserList:              "USER_LIST",
	MsgUserAdd:               "USER_ADD",
	MsgUserAdded:             "USER_ADDED",
	MsgUserRemove:            "USER_REMOVE",
	MsgUserRemoved:           "USER_REMOVED",
	MsgPasswordChange:        "PASSWORD_CHANGE",
	MsgPasswordChanged:       "PASSWORD_CHANGED",
	MsgPermissionsQuery:      "PERMISSIONS_QUERY",
	MsgPermissions:           "PERMISSIONS",
	MsgDeviceScanStart:       "DEVICE_SCAN_START",
	MsgDeviceScanStarted:     "DEVICE_SCAN_STARTED",
	MsgDeviceScanStop:        "DEVICE_SCAN_STOP",
	MsgDeviceScanStopped:     "DEVICE_SCAN_STOPPED",
	MsgDeviceFound:           "DEVICE_FOUND",
	MsgDevicePair:            "DEVICE_PAIR",
	MsgDevicePaired:          "DEVICE_PAIRED",
	MsgDeviceUnpair:          "DEVICE_UNPAIR",
	MsgDeviceUnpaired:        "DEVICE_UNPAIRED",
	MsgDeviceRename:          "DEVICE_RENAME",
	MsgDeviceRenamed:         "DEVICE_RENAMED",
	MsgDeviceRemove:          "DEVICE_REMOVE",
	MsgDeviceRemoved:         "DEVICE_REMOVED",
	MsgDeviceTeachIn:         "DEVICE_TEACH_IN",
	MsgDeviceTeachInDone:     "DEVICE_TEACH_IN_DONE",
	MsgDeviceTestSignal:      "DEVICE_TEST_SIGNAL",
	MsgDeviceSignalResult:    "DEVICE_SIGNAL_RESULT",
	MsgCompCreate:            "COMP_CREATE",
	MsgCompCreated:           "COMP_CREATED",
	MsgCompUpdate:            "COMP_UPDATE",
	MsgCompUpdated:           "COMP_UPDATED",
	MsgCompRemove:            "COMP_REMOVE",
	MsgCompRemoved:           "COMP_REMOVED",
	MsgRoomCreate:            "ROOM_CREATE",
	MsgRoomCreated:           "ROOM_CREATED",
	MsgRoomUpdate:            "ROOM_UPDATE",
	MsgRoomUpdated:           "ROOM_UPDATED",
	MsgRoomRemove:            "ROOM_REMOVE",
	MsgRoomRemoved:           "ROOM_REMOVED",
	MsgRoomAssign:            "ROOM_ASSIGN",
	MsgRoomAssigned:          "ROOM_ASSIGNED",
	MsgSceneActivate:         "SCENE_ACTIVATE",
	MsgSceneActivated:        "SCENE_ACTIVATED",
	MsgSceneCreate:           "SCENE_CREATE",
	MsgSceneCreated:          "SCENE_CREATED",
	MsgSceneRemove:           "SCENE_REMOVE",
	MsgSceneRemoved:          "SCENE_REMOVED",
	MsgTimerProgram:          "TIMER_PROGRAM",
	MsgTimerProgrammed:       "TIMER_PROGRAMMED",
	MsgTimerRemove:           "TIMER_REMOVE",
	MsgTimerRemoved:          "TIMER_REMOVED",
	MsgTimerFired:            "TIMER_FIRED",
	MsgNotification:          "NOTIFICATION",
	MsgNotificationAck:       "NOTIFICATION_ACK",
	MsgErrorReport:           "ERROR_REPORT",
	MsgDiagnosticsQuery:      "DIAGNOSTICS_QUERY",
	MsgDiagnostics:           "DIAGNOSTICS",
	MsgLogQuery:              "LOG_QUERY",
	MsgLogData:               "LOG_DATA",
	MsgWeatherQuery:          "WEATHER_QUERY",
	MsgWeatherData:           "WEATHER_DATA",
	MsgEnergyQuery:           "ENERGY_QUERY",
	MsgEnergyData:            "ENERGY_DATA",
	MsgBatteryWarning:        "BATTERY_WARNING",
	MsgConnectivityAlert:     "CONNECTIVITY_ALERT",
	MsgQuerySessionState:     "QUERY_SESSION_STATE",
	MsgSessionState:          "SESSION_STATE",
	MsgQueryCatalogue:        "QUERY_CATALOGUE",
	MsgCatalogue:             "CATALOGUE",
	MsgQueryDeviceState:      "QUERY_DEVICE_STATE",
	MsgQueryRoomState:        "QUERY_ROOM_STATE",
	MsgQueryCompState:        "QUERY_COMP_STATE",
	MsgQueryFirmware:         "QUERY_FIRMWARE",
	MsgFirmwareInfo:          "FIRMWARE_INFO",
	MsgQueryBackup:           "QUERY_BACKUP",
	MsgBackupData:            "BACKUP_DATA",
	MsgRestoreBackup:         "RESTORE_BACKUP",
	MsgBackupRestored:        "BACKUP_RESTORED",
	MsgQuerySystemInfo:       "QUERY_SYSTEM_INFO",
	MsgSystemInfo:            "SYSTEM_INFO",
	MsgSetAllData:            "SET_ALL_DATA",
	MsgSetDeviceState:        "SET_DEVICE_STATE",
	MsgSetCompState:          "SET_COMP_STATE",
	MsgSetRoomState:          "SET_ROOM_STATE",
	MsgSetStateInfo:          "SET_STATE_INFO",
	MsgSetDeviceShadingState: "SET_DEVICE_SHADING_STATE",
	MsgSetHeatingState:       "SET_HEATING_STATE",
	MsgSetSceneState:         "SET_SCENE_STATE",
	MsgSetTimerState:         "SET_TIMER_STATE",
	MsgActionSwitchDevice:    "ACTION_SWITCH_DEVICE",
	MsgActionSlideDevice:     "ACTION_SLIDE_DEVICE",
	MsgActionStopDevice:      "ACTION_STOP_DEVICE",
	MsgActionToggleDevice:    "ACTION_TOGGLE_DEVICE",
	MsgActionIdentify:        "ACTION_IDENTIFY",
}

// String returns the symbolic protocol name for known codes and the
// decimal value for codes outside the catalogue. Frames with unknown
// codes are tolerated everywhere, so String never fails.
func (t MessageType) String() string {
	if name, ok := messageNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

// Known reports whether the code is part of the published catalogue.
func (t MessageType) Known() bool {
	_, ok := messageNames[t]
	return ok
}
