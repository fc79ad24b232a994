/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package constants

import "github.com/quickfixgo/quickfix"

// --- Message Types ---
const (
	MsgTypeReject         = "3" // Session-level Reject
	MsgTypeBusinessReject = "j" // Business Message Reject

	// Trade Capture Messages
	MsgTypeTradeCaptureReportRequest    = "AD" // Trade Capture Report Request
	MsgTypeTradeCaptureReport           = "AE" // Trade Capture Report
	MsgTypeTradeCaptureReportRequestAck = "AQ" // Trade Capture Report Request Ack
)

// --- Protocol Constants ---
const (
	FixTimeFormat      = "20060102-15:04:05.000"
	DefaultBeginString = "FIX.4.4"
	DefaultSessionTime = "00:00:00"
)

// --- Trade Request Type (Tag 569) ---
const (
	TradeRequestTypeAllTrades              = "0" // All trades
	TradeRequestTypeMatchedTradesMatching  = "1" // Matched trades matching criteria
	TradeRequestTypeUnmatchedTradesMatched = "2" // Unmatched trades that match criteria
	TradeRequestTypeUnreportedTrades       = "3" // Unreported trades that match criteria
	TradeRequestTypeAdvisoriesMatching     = "4" // Advisories that match criteria
)

// --- Subscription Request Types (Tag 263) ---
const (
	SubscriptionRequestTypeSnapshot = "0" // Snapshot
)

// --- Trade Request Result (Tag 749) ---
const (
	TradeRequestResultSuccessful = "0"
)

// --- Trade Request Status (Tag 750) ---
const (
	TradeRequestStatusAccepted  = "0"
	TradeRequestStatusCompleted = "1"
	TradeRequestStatusRejected  = "2"
)

// --- Standard FIX Tags ---
var (
	TagBeginString         = quickfix.Tag(8)
	TagExecID              = quickfix.Tag(17)
	TagMsgSeqNum           = quickfix.Tag(34)
	TagMsgType             = quickfix.Tag(35)
	TagOrderID             = quickfix.Tag(37)
	TagSenderCompId        = quickfix.Tag(49)
	TagSendingTime         = quickfix.Tag(52)
	TagSide                = quickfix.Tag(54)
	TagSymbol              = quickfix.Tag(55)
	TagTargetCompId        = quickfix.Tag(56)
	TagText                = quickfix.Tag(58)
	TagTransactTime        = quickfix.Tag(60)
	TagTradeDate           = quickfix.Tag(75)
	TagLastQty             = quickfix.Tag(32)
	TagLastPx              = quickfix.Tag(31)
	TagSubscriptionReqType = quickfix.Tag(263)
	TagRefMsgType          = quickfix.Tag(372)
	TagBusinessRejectRefID = quickfix.Tag(379)
	TagBusinessRejectCode  = quickfix.Tag(380)

	// Trade Capture Tags
	TagTradeRequestID     = quickfix.Tag(568)
	TagTradeRequestType   = quickfix.Tag(569)
	TagTradeReportID      = quickfix.Tag(571)
	TagTotNumTradeReports = quickfix.Tag(748)
	TagTradeRequestResult = quickfix.Tag(749)
	TagTradeRequestStatus = quickfix.Tag(750)
)

// --- quickfix Session Setting Keys ---
const (
	SettingBeginString            = "BeginString"
	SettingSenderCompID           = "SenderCompID"
	SettingTargetCompID           = "TargetCompID"
	SettingSocketConnectHost      = "SocketConnectHost"
	SettingSocketConnectPort      = "SocketConnectPort"
	SettingHeartBtInt             = "HeartBtInt"
	SettingReconnectInterval      = "ReconnectInterval"
	SettingStartTime              = "StartTime"
	SettingEndTime                = "EndTime"
	SettingDataDictionary         = "DataDictionary"
	SettingSocketUseSSL           = "SocketUseSSL"
	SettingSocketMinimumTLS       = "SocketMinimumTLSVersion"
	SettingSocketCAFile           = "SocketCAFile"
	SettingSocketCertificateFile  = "SocketCertificateFile"
	SettingSocketPrivateKeyFile   = "SocketPrivateKeyFile"
	SettingSocketServerName       = "SocketServerName"
	SettingSocketInsecureSkip     = "SocketInsecureSkipVerify"
	SettingFileStorePath          = "FileStorePath"
	SettingFileLogPath            = "FileLogPath"
	SettingSQLStoreDriver         = "SQLStoreDriver"
	SettingSQLStoreDataSourceName = "SQLStoreDataSourceName"
)

// --- Store and Log Selectors ---
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQL    = "sql"

	LogZap    = "zap"
	LogFile   = "file"
	LogScreen = "screen"
	LogNone   = "none"
)

// --- Business Reject Reason (Tag 380) ---
const (
	BusinessRejectReasonOther               = "0"
	BusinessRejectReasonUnknownID           = "1"
	BusinessRejectReasonUnknownSecurity     = "2"
	BusinessRejectReasonUnsupportedMsgType  = "3"
	BusinessRejectReasonApplicationNotAvail = "4"
	BusinessRejectReasonCondRequiredMissing = "5"
	BusinessRejectReasonNotAuthorized       = "6"
)
