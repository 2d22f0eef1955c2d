// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "strconv"

// User-facing chat messages.
const (
	MsgWelcome              = "您好！我是您的搜尋助手。關於目前的搜尋結果，有什麼想問的嗎？"
	MsgSearchFirst          = "請先在左側搜尋欄輸入關鍵字查詢公告，我才能根據搜尋結果回答您的問題喔！"
	MsgTooLong              = "**輸入的字數過多**，請精簡您的問題後再試一次。"
	MsgNetworkError         = "網路連線錯誤，請檢查後端是否啟動。"
	MsgGenericErrorPrefix   = "系統錯誤："
	MsgWaitingForSearch     = "(等待搜尋...)"
	MsgBelowThresholdHeader = "(未符合門檻)"
)

// Backend error substrings used for classification.
const (
	backendTooLong    = "Input length exceeds"
	backendTokenLimit = "Token 使用量"
)

// DefaultSuggestions are shown when the initial suggestion fetch fails.
var DefaultSuggestions = []string{"介紹一下你自己", "最近有什麼重大公告？", "Copilot 價格是多少？"}

// SearchFirstSuggestions accompany MsgSearchFirst.
var SearchFirstSuggestions = []string{"如何搜尋公告？", "Copilot 是什麼？", "搜尋最新價格"}

// belowThresholdMessage tells the user every scanned result was filtered.
func belowThresholdMessage(scanned int) string {
	return "機器人提示：發現資料並未符合相似度，參考前 " + strconv.Itoa(scanned) + " 篇，如果要參考更多篇請調低 相似閾值"
}

// tokenBudgetMessage reports a local budget overflow with both numbers.
func tokenBudgetMessage(estimated, limit int) string {
	return "**Token 使用量超過上限**：預估 " + strconv.Itoa(estimated) + " / 上限 " + strconv.Itoa(limit) +
		"。請調高相似閾值或清除對話紀錄後再試一次。"
}

// tokenLimitMessage wraps a backend token-limit error.
func tokenLimitMessage(backendErr string) string {
	return "**Token 使用量超過上限**：" + backendErr
}
