package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/habitgrid/internal/config"
	"github.com/habitgrid/internal/db"
	"github.com/habitgrid/internal/service"
)

type seedHabit struct {
	input service.HabitInput
	// rate 为每日完成概率
	rate float64
}

var seedHabits = []seedHabit{
	{input: service.HabitInput{Name: "晨跑", Icon: "🏃", Color: "#22c55e"}, rate: 0.8},
	{input: service.HabitInput{Name: "阅读 30 分钟", Icon: "📚", Color: "#3b82f6"}, rate: 0.65},
	{input: service.HabitInput{Name: "冥想", Icon: "🧘", Color: "#a855f7"}, rate: 0.5},
	{input: service.HabitInput{Name: "力量训练", Icon: "🏋️", Color: "#f97316", Frequency: db.FrequencyWeekly, TargetDays: 3}, rate: 0.45},
	{input: service.HabitInput{Name: "写日记", Icon: "✍️", Color: "#eab308"}, rate: 0.35},
	{input: service.HabitInput{Name: "学吉他", Icon: "🎸", Color: "#ec4899", Status: db.StatusPaused}, rate: 0.2},
}

var seedNotes = []string{
	"状态不错，**全部完成**。",
	"下雨，改成室内训练。",
	"- 早起\n- 晚上读完一章",
	"出差中，只完成了一部分。",
}

// 测试数据生成器
func main() {
	days := flag.Int("days", 180, "number of days of history to generate")
	seed := flag.Uint64("seed", 42, "random seed")
	configFile := flag.String("config", "", "config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}
	store, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("数据库初始化失败:", err)
	}
	defer store.Close()

	ctx := context.Background()
	repo := service.NewRepository(store)
	if err := repo.Load(ctx); err != nil {
		log.Fatal("加载数据失败:", err)
	}

	fmt.Println("开始生成测试数据...")
	result, err := generateTestData(ctx, repo, *days, rand.New(rand.NewPCG(*seed, *seed)))
	if err != nil {
		log.Fatal("生成测试数据失败:", err)
	}
	if result.Habits == 0 {
		fmt.Println("习惯已存在，跳过创建")
		return
	}

	fmt.Println("测试数据生成完成！")
	fmt.Printf("习惯: %d 个\n", result.Habits)
	fmt.Printf("打卡: %d 条\n", result.Logs)
	fmt.Printf("备注: %d 条\n", result.Notes)
}

type seedResult struct {
	Habits int
	Logs   int
	Notes  int
}

// generateTestData 创建示例习惯并回填 days 天的打卡与备注；已有习惯时不做任何修改
func generateTestData(ctx context.Context, repo *service.Repository, days int, rng *rand.Rand) (seedResult, error) {
	var result seedResult
	if len(repo.ListActiveDisplayHabits()) > 0 {
		return result, nil
	}

	today := repo.Today()
	for _, spec := range seedHabits {
		habit, err := repo.CreateHabit(ctx, spec.input)
		if err != nil {
			return result, fmt.Errorf("create habit %q: %w", spec.input.Name, err)
		}
		result.Habits++

		for offset := days - 1; offset >= 0; offset-- {
			if rng.Float64() >= spec.rate {
				continue
			}
			date := service.FormatDate(today.AddDate(0, 0, -offset))
			if _, err := repo.UpsertLog(ctx, habit.ID, date, true); err != nil {
				return result, fmt.Errorf("log %s for %q: %w", date, habit.Name, err)
			}
			result.Logs++
		}
	}

	for offset := 0; offset < days; offset += 7 {
		date := service.FormatDate(today.AddDate(0, 0, -offset))
		content := seedNotes[rng.IntN(len(seedNotes))]
		if err := repo.SaveNote(ctx, date, content); err != nil {
			return result, fmt.Errorf("note %s: %w", date, err)
		}
		result.Notes++
	}
	return result, nil
}

