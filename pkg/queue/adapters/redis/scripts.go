package redis

import "github.com/redis/go-redis/v9"

// Every mutating operation below runs as a single Lua script so the backend
// executes it as one atomic unit, mirroring the reference implementation's
// server-side FCALL-based function library. Timestamps inside the scripts
// come from Redis TIME (the push scripts call it a second time when they
// auto-create the queue); message IDs are generated client-side from the
// Go clock before the script runs.

var createQueueScript = redis.NewScript(`
local exists = redis.call('SISMEMBER', KEYS[1], ARGV[1])
if exists == 1 then
  return 0
end
local time = redis.call('TIME')
local now_s = tonumber(time[1])
redis.call('SADD', KEYS[1], ARGV[1])
redis.call('HSET', KEYS[2], 'vt', ARGV[2], 'delay', ARGV[3], 'maxsize', ARGV[4])
redis.call('HSET', KEYS[3], 'created', now_s, 'modified', now_s, 'totalsent', 0, 'totalrecv', 0)
return 1
`)

var getQueueInfoScript = redis.NewScript(`
local exists = redis.call('SISMEMBER', KEYS[1], ARGV[1])
local time = redis.call('TIME')
local now_s = tonumber(time[1])
local now_ms = now_s * 1000 + math.floor(tonumber(time[2]) / 1000)
if exists == 0 then
  redis.call('SADD', KEYS[1], ARGV[1])
  redis.call('HSET', KEYS[2], 'vt', ARGV[2], 'delay', ARGV[3], 'maxsize', ARGV[4])
  redis.call('HSET', KEYS[3], 'created', now_s, 'modified', now_s, 'totalsent', 0, 'totalrecv', 0)
end
local cfg = redis.call('HMGET', KEYS[2], 'vt', 'delay', 'maxsize')
local meta = redis.call('HMGET', KEYS[3], 'created', 'modified', 'totalsent', 'totalrecv')
local msgs = redis.call('ZCARD', KEYS[4])
local hidden = redis.call('ZCOUNT', KEYS[4], '(' .. now_ms, '+inf')
return {cfg[1], cfg[2], cfg[3], meta[1], meta[2], meta[3], meta[4], msgs, hidden}
`)

var describeQueueScript = redis.NewScript(`
local exists = redis.call('SISMEMBER', KEYS[1], ARGV[1])
if exists == 0 then
  return false
end
local time = redis.call('TIME')
local now_ms = tonumber(time[1]) * 1000 + math.floor(tonumber(time[2]) / 1000)
local cfg = redis.call('HMGET', KEYS[2], 'vt', 'delay', 'maxsize')
local meta = redis.call('HMGET', KEYS[3], 'created', 'modified', 'totalsent', 'totalrecv')
local msgs = redis.call('ZCARD', KEYS[4])
local hidden = redis.call('ZCOUNT', KEYS[4], '(' .. now_ms, '+inf')
return {cfg[1], cfg[2], cfg[3], meta[1], meta[2], meta[3], meta[4], msgs, hidden}
`)

var setQueueFieldScript = redis.NewScript(`
local time = redis.call('TIME')
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], 'modified', tonumber(time[1]))
return 1
`)

var deleteQueueScript = redis.NewScript(`
local ids = redis.call('ZRANGE', KEYS[4], 0, -1)
for _, id in ipairs(ids) do
  redis.call('DEL', ARGV[2] .. id)
end
redis.call('DEL', KEYS[2], KEYS[3], KEYS[4])
redis.call('SREM', KEYS[1], ARGV[1])
return 1
`)

// pushMessageScript auto-creates the queue if missing, validates size, and
// writes the message body/metadata/index entry. ARGV:
// 1=name 2=defaultVT 3=defaultDelay 4=defaultMaxSize 5=msgKeyPrefix
// 6=id 7=body 8=delay(-1 sentinel) 9=metadata
var pushMessageScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 0 then
  local t = redis.call('TIME')
  redis.call('SADD', KEYS[1], ARGV[1])
  redis.call('HSET', KEYS[2], 'vt', ARGV[2], 'delay', ARGV[3], 'maxsize', ARGV[4])
  redis.call('HSET', KEYS[3], 'created', t[1], 'modified', t[1], 'totalsent', 0, 'totalrecv', 0)
end

local maxsize = tonumber(redis.call('HGET', KEYS[2], 'maxsize'))
if maxsize > 0 and #ARGV[7] > maxsize then
  return redis.error_reply('MESSAGE_TOO_LARGE')
end

local delay = tonumber(ARGV[8])
if delay < 0 then
  delay = tonumber(redis.call('HGET', KEYS[2], 'delay'))
end

local time = redis.call('TIME')
local now_s = tonumber(time[1])
local now_ms = now_s * 1000 + math.floor(tonumber(time[2]) / 1000)
local deliver_at = now_ms + delay * 1000

local msgKey = ARGV[5] .. ARGV[6]
redis.call('HSET', msgKey, 'body', ARGV[7], 'metadata', ARGV[9], 'rc', 0, 'fr', 0, 'sent', now_s)
redis.call('ZADD', KEYS[4], deliver_at, ARGV[6])
redis.call('HINCRBY', KEYS[3], 'totalsent', 1)
return ARGV[6]
`)

// pushMessagesScript pushes a batch atomically: every body is validated
// before anything is written, so a too-large entry anywhere in the batch
// leaves the queue untouched. ARGV:
// 1=name 2=defaultVT 3=defaultDelay 4=defaultMaxSize 5=msgKeyPrefix 6=count
// then 4 ARGV per entry: id, body, delay(-1 sentinel), metadata
var pushMessagesScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 0 then
  local t = redis.call('TIME')
  redis.call('SADD', KEYS[1], ARGV[1])
  redis.call('HSET', KEYS[2], 'vt', ARGV[2], 'delay', ARGV[3], 'maxsize', ARGV[4])
  redis.call('HSET', KEYS[3], 'created', t[1], 'modified', t[1], 'totalsent', 0, 'totalrecv', 0)
end

local maxsize = tonumber(redis.call('HGET', KEYS[2], 'maxsize'))
local qdelay = tonumber(redis.call('HGET', KEYS[2], 'delay'))
local count = tonumber(ARGV[6])
local base = 7

for i = 0, count - 1 do
  local body = ARGV[base + 4 * i + 1]
  if maxsize > 0 and #body > maxsize then
    return redis.error_reply('MESSAGE_TOO_LARGE')
  end
end

local time = redis.call('TIME')
local now_s = tonumber(time[1])
local now_ms = now_s * 1000 + math.floor(tonumber(time[2]) / 1000)
local ids = {}

for i = 0, count - 1 do
  local id = ARGV[base + 4 * i]
  local body = ARGV[base + 4 * i + 1]
  local delay = tonumber(ARGV[base + 4 * i + 2])
  if delay < 0 then
    delay = qdelay
  end
  local metadata = ARGV[base + 4 * i + 3]
  local deliver_at = now_ms + delay * 1000
  local msgKey = ARGV[5] .. id
  redis.call('HSET', msgKey, 'body', body, 'metadata', metadata, 'rc', 0, 'fr', 0, 'sent', now_s)
  redis.call('ZADD', KEYS[4], deliver_at, id)
  ids[#ids + 1] = id
end

redis.call('HINCRBY', KEYS[3], 'totalsent', count)
return ids
`)

// getMessageScript returns the earliest ready entry without deleting it,
// advancing its deliver_at by the effective visibility timeout. ARGV:
// 1=msgKeyPrefix 2=vt(-1 sentinel)
var getMessageScript = redis.NewScript(`
local time = redis.call('TIME')
local now_ms = tonumber(time[1]) * 1000 + math.floor(tonumber(time[2]) / 1000)
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', now_ms, 'LIMIT', 0, 1)
if #ids == 0 then
  return false
end
local id = ids[1]
local vt = tonumber(ARGV[2])
if vt < 0 then
  vt = tonumber(redis.call('HGET', KEYS[3], 'vt'))
end
local new_deliver = now_ms + vt * 1000
redis.call('ZADD', KEYS[1], new_deliver, id)

local msgKey = ARGV[1] .. id
local rc = redis.call('HINCRBY', msgKey, 'rc', 1)
local fr = tonumber(redis.call('HGET', msgKey, 'fr'))
if fr == 0 then
  redis.call('HSET', msgKey, 'fr', now_ms)
  fr = now_ms
end
redis.call('HINCRBY', KEYS[2], 'totalrecv', 1)

local body = redis.call('HGET', msgKey, 'body')
local metadata = redis.call('HGET', msgKey, 'metadata')
local sent = redis.call('HGET', msgKey, 'sent')
return {id, body, metadata, rc, fr, sent}
`)

// deleteMessageScript removes id from the index and its fields, a no-op if
// absent. ARGV: 1=msgKeyPrefix 2=id
var deleteMessageScript = redis.NewScript(`
redis.call('ZREM', KEYS[1], ARGV[2])
redis.call('DEL', ARGV[1] .. ARGV[2])
return 1
`)

// popMessageScript is getMessageScript immediately followed by deletion.
// ARGV: 1=msgKeyPrefix
var popMessageScript = redis.NewScript(`
local time = redis.call('TIME')
local now_ms = tonumber(time[1]) * 1000 + math.floor(tonumber(time[2]) / 1000)
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', now_ms, 'LIMIT', 0, 1)
if #ids == 0 then
  return false
end
local id = ids[1]
local msgKey = ARGV[1] .. id
local rc = redis.call('HINCRBY', msgKey, 'rc', 1)
local fr = tonumber(redis.call('HGET', msgKey, 'fr'))
if fr == 0 then
  fr = now_ms
end
redis.call('HINCRBY', KEYS[2], 'totalrecv', 1)

local body = redis.call('HGET', msgKey, 'body')
local metadata = redis.call('HGET', msgKey, 'metadata')
local sent = redis.call('HGET', msgKey, 'sent')
redis.call('ZREM', KEYS[1], id)
redis.call('DEL', msgKey)
return {id, body, metadata, rc, fr, sent}
`)
