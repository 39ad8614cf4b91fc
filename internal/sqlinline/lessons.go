package sqlinline

// Dedup insert: the unique index on (user_id, image_url) makes the conflict
// itself the cache-hit signal. The fallback select runs on the pre-insert
// snapshot, so a conflict against a row committed before this statement
// still yields one row. A conflict against a concurrent uncommitted insert
// yields zero rows; callers re-select by key in that case.
const QInsertLesson = `--sql e486b084-79c8-47a8-8110-29c2f76da7f0
with ins as (
    insert into lessons (
        id,
        user_id,
        image_url,
        status,
        target_language,
        native_language,
        difficulty,
        is_saved
    )
    values (gen_random_uuid(), $1, $2, 'pending', $3, $4, $5, false)
    on conflict (user_id, image_url) do nothing
    returning id, true as inserted
)
select id, inserted from ins
union all
select id, false from lessons where user_id = $1 and image_url = $2
limit 1;
`

const QSelectLessonIDByImage = `--sql 9c1ad2ab-5f0e-4f66-9a4e-2e6c41f7d3b8
select id from lessons where user_id = $1 and image_url = $2;
`

const QSelectLessonByID = `--sql 2d56fd17-bd1c-4148-a0d7-f85bbb442351
select id, user_id, image_url, status, result, error_detail,
       target_language, native_language, difficulty, is_saved,
       created_at, updated_at
from lessons
where id = $1;
`

const QCompleteLesson = `--sql 7f5d7003-5e21-4bfd-94e1-a60ffc9e945b
update lessons
set status = 'completed',
    result = $2,
    error_detail = '',
    updated_at = now()
where id = $1
  and status = 'pending';
`

const QFailLesson = `--sql 8b01577e-676b-4f17-be80-184b2b90baaa
update lessons
set status = 'failed',
    error_detail = $2,
    updated_at = now()
where id = $1
  and status = 'pending';
`

const QMarkLessonSaved = `--sql fe2f86df-eab1-4f12-8d24-0be2aed4a556
update lessons
set is_saved = true,
    image_url = $2,
    updated_at = now()
where id = $1
returning id, user_id, image_url, status, is_saved;
`

const QListLessonsByUser = `--sql ee99c00a-b344-457d-8bd0-4f0aafeb2835
select id, user_id, image_url, status, result, error_detail,
       target_language, native_language, difficulty, is_saved,
       created_at, updated_at
from lessons
where user_id = $1
order by created_at desc
limit $2 offset $3;
`

const QDeleteLesson = `--sql 8d276fa7-e265-4db7-898d-3f613c3be75d
delete from lessons where id = $1;
`

const QSelectStaleLessons = `--sql aeaf7091-50ed-4654-aec2-3dc8486834f7
select id, image_url
from lessons
where is_saved = false
  and created_at < $1
order by created_at asc;
`

// Claim a pending job whose trigger appears lost: it has not been touched
// since the re-dispatch threshold. updated_at is bumped so concurrent
// workers skip it until the threshold elapses again.
const QClaimStalePendingLesson = `--sql 3d4cd6ae-8032-4d0c-909a-ecb8bc53283a
with next_job as (
    select id
    from lessons
    where status = 'pending'
      and updated_at < $1
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update lessons
    set updated_at = now()
    where id in (select id from next_job)
    returning id, user_id, image_url, target_language, native_language, difficulty
)
select * from claimed;
`
