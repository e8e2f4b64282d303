package logic

import (
	"sync"
)

// 每个金库一个互斥锁：同一活动的所有变更串行执行，
// 只读查询不加锁，可与写操作自由交错。
var campaignLocks sync.Map

// lockCampaign 获取活动级写锁，返回解锁函数
func lockCampaign(campaignId int64) func() {
	v, _ := campaignLocks.LoadOrStore(campaignId, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
