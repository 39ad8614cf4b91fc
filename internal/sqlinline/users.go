package sqlinline

const QSelectUserPreferences = `--sql 46f464c5-938a-4921-8f07-81954fb5f965
select target_language, native_language, difficulty
from users
where id = $1;
`

const QUpsertUserPreferences = `--sql 2e5373ba-b586-49ab-bdd2-263b49eced94
insert into users (id, target_language, native_language, difficulty)
values ($1, $2, $3, $4)
on conflict (id) do update
set target_language = excluded.target_language,
    native_language = excluded.native_language,
    difficulty = excluded.difficulty,
    updated_at = now();
`
