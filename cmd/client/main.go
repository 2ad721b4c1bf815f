package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/palemoky/europe-conquest/internal/client"
	"github.com/palemoky/europe-conquest/internal/logger"
	"github.com/palemoky/europe-conquest/internal/protocol"
	"github.com/palemoky/europe-conquest/internal/protocol/codec"
)

const usage = `命令:
  create [CODE]          创建房间
  join CODE              加入房间
  leave                  离开房间
  select COUNTRY         选择国家
  ready | unready        准备 / 取消准备
  start                  开始倒计时（房主）
  end                    结束本局（房主）
  attack COUNTRY [TYPE]  进攻（TYPE 0-3）
  fort COUNTRY           升级要塞
  ping                   测量延迟
  quit                   退出`

func main() {
	serverAddr := flag.String("server", "localhost:8080", "服务器地址")
	name := flag.String("name", "", "玩家昵称")
	playerID := flag.String("id", "", "玩家 ID（为空时自动生成）")
	useProto := flag.Bool("proto", false, "使用 protobuf 二进制帧")
	flag.Parse()

	_ = logger.Init("info", "console")

	subprotocol := codec.SubprotocolJSON
	if *useProto {
		subprotocol = codec.SubprotocolProto
	}

	c := client.New(client.Options{
		URL:         fmt.Sprintf("ws://%s/ws", *serverAddr),
		Subprotocol: subprotocol,
		PlayerID:    *playerID,
		Name:        *name,
		Reconnect:   true,
	})
	c.OnMessage = printMessage
	c.OnReconnect = func() { log.Info().Str("room", c.RoomCode()).Msg("✅ 已重新加入房间") }

	if err := c.Connect(); err != nil {
		log.Fatal().Err(err).Msg("连接服务器失败")
	}
	defer c.Close()
	c.StartHeartbeat()

	log.Info().Str("player", c.PlayerID()).Str("codec", c.Codec().Name()).Msg("🌍 已连接")
	fmt.Println(usage)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-c.Done():
			log.Info().Msg("连接已关闭")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := runCommand(c, strings.Fields(line)); quit {
				return
			}
		}
	}
}

// runCommand 执行一行命令，返回是否退出
func runCommand(c *client.Client, args []string) bool {
	if len(args) == 0 {
		return false
	}
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "create":
		err = c.CreateRoom(strings.ToUpper(arg(1)))
	case "join":
		err = c.JoinRoom(arg(1))
	case "leave":
		err = c.LeaveRoom()
	case "select":
		err = c.SelectCountry(strings.Join(args[1:], " "))
	case "ready":
		err = c.Ready(true)
	case "unready":
		err = c.Ready(false)
	case "start":
		err = c.StartCountdown()
	case "end":
		err = c.EndGame()
	case "attack":
		typ := 0
		country := args[1:]
		if n := len(country); n > 1 {
			if v, convErr := strconv.Atoi(country[n-1]); convErr == nil {
				typ, country = v, country[:n-1]
			}
		}
		err = c.Attack(strings.Join(country, " "), typ)
	case "fort":
		err = c.UpgradeFort(strings.Join(args[1:], " "))
	case "ping":
		err = c.Ping()
	case "quit", "exit":
		return true
	default:
		fmt.Println(usage)
	}
	if err != nil {
		log.Error().Err(err).Msg("发送失败")
	}
	return false
}

// printMessage 打印服务端事件
func printMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgPong:
		return
	case protocol.MsgError:
		if p, err := codec.ParsePayload[protocol.ErrorPayload](msg); err == nil {
			log.Warn().Int("code", p.Code).Msg("❌ " + p.Message)
			return
		}
	case protocol.MsgAttackResult:
		if p, err := codec.ParsePayload[protocol.AttackResultPayload](msg); err == nil {
			log.Info().
				Str("attacker", p.AttackerID).
				Str("country", p.CountryName).
				Bool("success", p.Success).
				Float64("chance", p.FinalChance).
				Msg("⚔️ 进攻")
			return
		}
	}
	log.Info().Str("type", string(msg.Type)).RawJSON("data", orEmpty(msg.Data)).Msg("📨")
}

func orEmpty(data []byte) []byte {
	if len(data) == 0 {
		return []byte("{}")
	}
	return data
}
