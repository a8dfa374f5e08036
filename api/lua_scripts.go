package api

import "github.com/redis/go-redis/v9"

// UploadRateLimitScript 用於檢查並累計使用者的圖片上傳次數
//  KEYS[1] - 使用者的上傳計數鍵
//  ARGV[1] - 時間窗口內允許的上傳次數上限
//  ARGV[2] - 時間窗口長度(秒)
//
// 返回值:
//  1 - 允許上傳
//  0 - 已達上傳上限
//
// 流程:
//  - 1. 累計上傳次數
//  - 2. 如果是窗口內的第一次上傳，設定鍵的過期時間
//  - 3a. 如果累計次數超過上限，返回0
//  - 3b. 否則返回1
var UploadRateLimitScript = redis.NewScript(`
-- 累計上傳次數
local count = redis.call('INCR', KEYS[1])

-- 窗口內第一次上傳時設定過期時間
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[2])
end

-- 檢查是否超過上限
if count > tonumber(ARGV[1]) then
    return 0
end

return 1
`)
