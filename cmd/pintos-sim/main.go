// Command pintos-sim boots a kernel.Kernel and runs one of a handful of
// named scenarios against it, printing the resulting thread log or
// computed statistic to stdout. It exists to let a human watch the
// scheduler's priority, donation, and MLFQS behavior play out, the way
// the real pintos test suite's scenario names describe what each one
// checks.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/BnjmnCummings/pintos/kernel"
)

func main() {
	mlfqs := flag.Bool("mlfqs", false, "boot with the 4.4BSD MLFQS scheduler instead of strict priority with donation")
	scenario := flag.String("scenario", "alarm-priority", "scenario to run: alarm-priority, priority-change, priority-donate-one, mlfqs-load-1, semaphore-wake-order, exit-reclaims")
	verbose := flag.Bool("v", false, "also print the scheduler's own structured log to stderr")
	flag.Parse()

	var opts []kernel.Option
	if *verbose {
		opts = append(opts, kernel.WithLogger(kernel.NewStdLogger()))
	}
	opts = append(opts, kernel.WithTickInterval(0), kernel.WithMetrics(true))

	run, needsMLFQS, err := lookupScenario(*scenario)
	if err != nil {
		log.Fatal(err)
	}
	if needsMLFQS && !*mlfqs {
		fmt.Fprintf(os.Stderr, "scenario %q requires MLFQS; forcing -mlfqs=true\n", *scenario)
		*mlfqs = true
	}
	opts = append(opts, kernel.WithMLFQS(*mlfqs))

	k := kernel.Boot(opts...)
	k.Start()
	defer k.Stop()

	run(k)
}

func lookupScenario(name string) (fn func(*kernel.Kernel), needsMLFQS bool, err error) {
	switch name {
	case "alarm-priority":
		return runAlarmPriority, false, nil
	case "priority-change":
		return runPriorityChange, false, nil
	case "priority-donate-one":
		return runPriorityDonateOne, false, nil
	case "semaphore-wake-order":
		return runSemaphoreWakeOrder, false, nil
	case "exit-reclaims":
		return runExitReclaims, false, nil
	case "mlfqs-load-1":
		return runMLFQSLoad, true, nil
	default:
		return nil, false, fmt.Errorf("unknown scenario %q", name)
	}
}

// runAlarmPriority sleeps three threads for different durations and
// prints the order they wake in: shortest sleep first, regardless of
// creation order.
func runAlarmPriority(k *kernel.Kernel) {
	k.SetPriority(kernel.PriMin)

	print := func(name string) { fmt.Println(name) }
	spawn := func(name string, ticks int64) {
		if _, err := k.Create(name, kernel.PriDefault-1, func(any) {
			k.SleepTicks(ticks)
			print(name)
		}, nil); err != nil {
			log.Fatal(err)
		}
	}

	spawn("sleeper-5", 5)
	spawn("sleeper-3", 3)
	spawn("sleeper-1", 1)

	for i := 0; i < 6; i++ {
		k.Tick()
	}
}

// runPriorityChange has a high-priority thread cede the CPU by
// blocking, lets a lower-priority thread lower its own priority
// further, then shows the high-priority thread preempting it again
// once unblocked.
func runPriorityChange(k *kernel.Kernel) {
	k.SetPriority(kernel.PriMin)
	handoff := kernel.NewSemaphore(k, 0)

	if _, err := k.Create("H", 40, func(any) {
		fmt.Println("H: running at priority 40")
		handoff.Down()
		fmt.Println("H: resumed, still priority 40")
	}, nil); err != nil {
		log.Fatal(err)
	}

	if _, err := k.Create("M", 30, func(any) {
		fmt.Println("M: running at priority 30")
		k.SetPriority(20)
		fmt.Println("M: lowered itself to priority 20")
	}, nil); err != nil {
		log.Fatal(err)
	}

	handoff.Up()
}

// runPriorityDonateOne has a high-priority thread block acquiring a
// lock held by a low-priority thread, donating its priority until the
// lock is released, and shows that donation outranking a third,
// middling-priority thread the whole time it is withheld.
func runPriorityDonateOne(k *kernel.Kernel) {
	k.SetPriority(kernel.PriMin)
	gate := kernel.NewSemaphore(k, 0)

	if _, err := k.Create("M", 32, func(any) {
		gate.Down()
		fmt.Println("M: running at priority 32")
	}, nil); err != nil {
		log.Fatal(err)
	}

	lock := kernel.NewLock(k)
	release := kernel.NewSemaphore(k, 0)

	lTID, err := k.Create("L", 0, func(any) {
		lock.Acquire()
		fmt.Println("L: acquired the lock at priority 0")
		release.Down()
		lock.Release()
	}, nil)
	if err != nil {
		log.Fatal(err)
	}
	k.Yield()

	lThread := k.ThreadByTID(lTID)
	fmt.Printf("L: effective priority is now %d\n", lThread.EffectivePriority())

	if _, err := k.Create("H", kernel.PriMax, func(any) {
		lock.Acquire()
		lock.Release()
	}, nil); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("L: effective priority after H blocks on the lock is %d\n", lThread.EffectivePriority())

	release.Up()
	gate.Up()
}

// runSemaphoreWakeOrder starts three waiters at increasing priority
// and shows up() waking them in priority order, not arrival order.
func runSemaphoreWakeOrder(k *kernel.Kernel) {
	k.SetPriority(kernel.PriMin)
	sem := kernel.NewSemaphore(k, 0)
	started := kernel.NewSemaphore(k, 0)

	spawn := func(name string, prio int) {
		if _, err := k.Create(name, prio, func(any) {
			started.Up()
			sem.Down()
			fmt.Println(name)
		}, nil); err != nil {
			log.Fatal(err)
		}
	}

	spawn("ten", 10)
	started.Down()
	spawn("twenty", 20)
	started.Down()
	spawn("thirty", 30)
	started.Down()

	sem.Up()
	sem.Up()
	sem.Up()
}

// runExitReclaims spawns and exits a batch of threads and prints how many
// threads were created and how many have been reaped, which should differ
// by at most 1.
func runExitReclaims(k *kernel.Kernel) {
	k.SetPriority(kernel.PriMin)

	const n = 20
	for i := 0; i < n; i++ {
		if _, err := k.Create("worker", kernel.PriDefault-1, func(any) {}, nil); err != nil {
			log.Fatal(err)
		}
		k.Yield()
	}
	k.Yield()

	m := k.Metrics()
	fmt.Printf("threads created=%d reaped=%d\n", m.ThreadsCreated, m.ThreadsReaped)
}

// runMLFQSLoad drives a single thread's own ticks for one simulated
// minute and prints how load_avg converges toward 1 as the only
// ready-or-running thread in the system.
func runMLFQSLoad(k *kernel.Kernel) {
	const n = 6000
	for i := 0; i < n; i++ {
		k.Tick()
		if i%600 == 599 {
			fmt.Printf("t=%ds load_avg=%.2f recent_cpu=%.2f\n",
				(i+1)/100, float64(k.LoadAvgPercent())/100, float64(k.RecentCPUPercent())/100)
		}
	}
}
