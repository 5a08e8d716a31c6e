package bdd

import "github.com/cucumber/godog"

// godog run ./tests/bdd/featureFiles/messaging_service.feature
// Use of godog CLI is deprecated, please use *testing.T instead.
// See https://github.com/cucumber/godog/discussions/478 for details.
// Feature: 私訊功能
//   In order to stay in touch
//   As registered users
//   I want to exchange direct messages and see who is online

//   Background:
//     Given "alice" 已登入並取得 Token "tokenA"
//     And "bob" 已登入並取得 Token "tokenB"

//   Scenario: 首次私訊自動建立 conversation
//     When "alice" 私訊 "bob" 內容 "hi"
//     Then "alice" 和 "bob" 之間應該存在一個 conversation

//   Scenario: 發送與接收訊息
//     Given "bob" 已開啟與 "alice" 的 conversation
//     When "alice" 私訊 "bob" 內容 "hello bob"
//     Then "bob" 應該即時收到訊息 "hello bob"

//   Scenario: 離開頁面的成員收到通知
//     Given "bob" 未開啟與 "alice" 的 conversation
//     When "alice" 私訊 "bob" 內容 "are you there"
//     Then "bob" 應該收到一則 "message" 通知

//   Scenario: 上線狀態廣播
//     When "bob" 建立 websocket 連線
//     Then "alice" 應該收到 "bob" 的上線事件

func aliceSendsMessage(arg1, arg2, arg3 string) error {
	return godog.ErrPending
}

func conversationExistsBetween(arg1, arg2 string) error {
	return godog.ErrPending
}

func userReceivesMessage(arg1, arg2 string) error {
	return godog.ErrPending
}

func userHasConversationOpen(arg1, arg2 string) error {
	return godog.ErrPending
}

func userHasConversationClosed(arg1, arg2 string) error {
	return godog.ErrPending
}

func userReceivesNotification(arg1, arg2 string) error {
	return godog.ErrPending
}

func userConnectsWebsocket(arg1 string) error {
	return godog.ErrPending
}

func userReceivesPresenceEvent(arg1, arg2 string) error {
	return godog.ErrPending
}

func token(arg1, arg2 string) error {
	return godog.ErrPending
}

func InitializeMessagingServiceScenario(ctx *godog.ScenarioContext) {
	ctx.Step(`^"([^"]*)" 已登入並取得 Token "([^"]*)"$`, token)
	ctx.Step(`^"([^"]*)" 私訊 "([^"]*)" 內容 "([^"]*)"$`, aliceSendsMessage)
	ctx.Step(`^"([^"]*)" 和 "([^"]*)" 之間應該存在一個 conversation$`, conversationExistsBetween)
	ctx.Step(`^"([^"]*)" 應該即時收到訊息 "([^"]*)"$`, userReceivesMessage)
	ctx.Step(`^"([^"]*)" 已開啟與 "([^"]*)" 的 conversation$`, userHasConversationOpen)
	ctx.Step(`^"([^"]*)" 未開啟與 "([^"]*)" 的 conversation$`, userHasConversationClosed)
	ctx.Step(`^"([^"]*)" 應該收到一則 "([^"]*)" 通知$`, userReceivesNotification)
	ctx.Step(`^"([^"]*)" 建立 websocket 連線$`, userConnectsWebsocket)
	ctx.Step(`^"([^"]*)" 應該收到 "([^"]*)" 的上線事件$`, userReceivesPresenceEvent)
}
